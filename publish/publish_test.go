package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

func artifact() Artifact {
	return Artifact{
		Name:        "RAN1-124.json",
		ContentType: "application/json",
		Data:        []byte(`{"version":1}`),
		MeetingName: "RAN1#124",
		RunID:       "run-1",
		Sessions:    12,
		Unresolved:  1,
		CreatedAt:   time.Date(2026, 2, 16, 8, 0, 0, 0, time.UTC),
	}
}

// ============================================================================
// File Tests
// ============================================================================

func TestFilePublish(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	if err := (File{Dir: dir}).Publish(context.Background(), artifact()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "RAN1-124.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"version":1}` {
		t.Errorf("content = %s", got)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the document", len(entries))
	}
}

func TestFilePublishNeedsName(t *testing.T) {
	a := artifact()
	a.Name = ""
	if err := (File{Dir: t.TempDir()}).Publish(context.Background(), a); err == nil {
		t.Error("expected error for unnamed artifact")
	}
}

// ============================================================================
// S3 Tests
// ============================================================================

type fakePutter struct {
	in  *s3.PutObjectInput
	err error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Publish(t *testing.T) {
	put := &fakePutter{}
	sink := &S3{client: put, bucket: "schedules", prefix: "ran1"}
	if err := sink.Publish(context.Background(), artifact()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if aws.ToString(put.in.Bucket) != "schedules" || aws.ToString(put.in.Key) != "ran1/RAN1-124.json" {
		t.Errorf("bucket/key = %s/%s", aws.ToString(put.in.Bucket), aws.ToString(put.in.Key))
	}
	if aws.ToString(put.in.ContentType) != "application/json" {
		t.Errorf("content type = %s", aws.ToString(put.in.ContentType))
	}
	body, _ := io.ReadAll(put.in.Body)
	if string(body) != `{"version":1}` {
		t.Errorf("body = %s", body)
	}
	if put.in.Metadata["meeting"] != "RAN1#124" || put.in.Metadata["unresolved"] != "1" {
		t.Errorf("metadata = %v", put.in.Metadata)
	}
}

func TestS3PublishError(t *testing.T) {
	boom := errors.New("access denied")
	sink := &S3{client: &fakePutter{err: boom}, bucket: "b"}
	if err := sink.Publish(context.Background(), artifact()); !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped %v", err, boom)
	}
}

func TestNewS3NeedsBucket(t *testing.T) {
	if _, err := NewS3(context.Background(), S3Options{}); err == nil {
		t.Error("expected error without bucket")
	}
}

func TestNewS3WithEndpoint(t *testing.T) {
	sink, err := NewS3(context.Background(), S3Options{
		Bucket:          "b",
		Region:          "us-east-1",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	})
	if err != nil {
		t.Fatalf("NewS3() error = %v", err)
	}
	if sink.Key(Artifact{Name: "dir/x.json"}) != "x.json" {
		t.Errorf("Key() = %q", sink.Key(Artifact{Name: "dir/x.json"}))
	}
}

// ============================================================================
// NATS Tests
// ============================================================================

func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func TestNATSPublish(t *testing.T) {
	url := startTestNATS(t)

	sink, err := NewNATS(url, "")
	if err != nil {
		t.Fatalf("NewNATS() error = %v", err)
	}
	defer sink.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()
	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(DefaultSubject, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	if err := nc.Flush(); err != nil {
		t.Fatal(err)
	}

	if err := sink.Publish(context.Background(), artifact()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-ch:
		var got Notification
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Meeting != "RAN1#124" || got.Name != "RAN1-124.json" || got.Size != 13 || got.Sessions != 12 {
			t.Errorf("notification = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestNewNATSUnreachable(t *testing.T) {
	if _, err := NewNATS("nats://127.0.0.1:1", ""); err == nil {
		t.Error("expected connection error")
	}
}

// ============================================================================
// Multi Tests
// ============================================================================

type recordSink struct {
	got []Artifact
	err error
}

func (r *recordSink) Publish(_ context.Context, a Artifact) error {
	r.got = append(r.got, a)
	return r.err
}

func TestMultiContinuesPastFailure(t *testing.T) {
	boom := errors.New("boom")
	first := &recordSink{err: boom}
	second := &recordSink{}
	err := Multi{first, second}.Publish(context.Background(), artifact())
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
	if len(second.got) != 1 {
		t.Error("second sink should still receive the artifact")
	}
	if err := (Multi{}).Publish(context.Background(), artifact()); err != nil {
		t.Errorf("empty Multi error = %v", err)
	}
}
