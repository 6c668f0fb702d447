package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/karlla1220/meetgrid/model"
)

// fakeModels answers GenerateContent from a script of replies.
type fakeModels struct {
	replies []string
	errs    []error
	calls   int
	prompts []string
	configs []*genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	i := f.calls
	f.calls++
	f.configs = append(f.configs, cfg)
	for _, c := range contents {
		for _, p := range c.Parts {
			f.prompts = append(f.prompts, p.Text)
		}
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	reply := ""
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(reply, genai.RoleModel)}},
	}, nil
}

func testGemini(models generator) *Gemini {
	return newGemini(models, GeminiOptions{Interval: time.Millisecond, Retries: 3})
}

func TestGeminiSequentialTimes(t *testing.T) {
	models := &fakeModels{replies: []string{`[
		{"room_name": "R1", "name": "Opening", "duration_minutes": 15, "chair": "John"},
		{"room_name": "R2", "name": "CSI", "duration_minutes": 60, "agenda_item": "9.1.2", "group_header": "MIMO"},
		{"room_name": "R1", "name": "Keynote", "duration_minutes": 45}
	]`}}
	req := request(tb(0, "08:30", "10:30"),
		frag("main", model.RolePrimary, "R1", "Opening (15)\nKeynote (45)"),
		frag("vice", model.RoleDetail, "Room B", "9.1.2 CSI (60)"),
	)
	req.Hint = map[string]string{"Room B": "R2"}

	resp, err := testGemini(models).Structure(context.Background(), req)
	if err != nil {
		t.Fatalf("Structure() error = %v", err)
	}
	if len(resp.Sessions) != 3 {
		t.Fatalf("sessions = %+v", resp.Sessions)
	}

	keynote := resp.Sessions[2]
	if keynote.Interval().String() != "08:45-09:30" {
		t.Errorf("keynote = %s, want 08:45-09:30", keynote.Interval())
	}
	csi := resp.Sessions[1]
	if csi.AgendaItem != "9.1.2" || csi.Category != "MIMO" || csi.Interval().String() != "08:30-09:30" {
		t.Errorf("csi = %+v", csi)
	}
	if strings.Join(csi.Sources, ",") != "vice" {
		t.Errorf("csi sources = %v, want credited through the hint", csi.Sources)
	}

	cfg := models.configs[0]
	if cfg.ResponseMIMEType != "application/json" || cfg.ResponseSchema == nil || *cfg.Temperature != 0.1 {
		t.Errorf("config = %+v", cfg)
	}
	prompt := strings.Join(models.prompts, "\n")
	for _, want := range []string{"Rooms: R1, R2", `"Room B" means room "R2"`, "9.1.2 CSI (60)"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestGeminiRetries(t *testing.T) {
	models := &fakeModels{
		errs:    []error{errors.New("unavailable"), errors.New("unavailable")},
		replies: []string{"", "", `[{"room_name": "R1", "name": "x", "duration_minutes": 30}]`},
	}
	resp, err := testGemini(models).Structure(context.Background(),
		request(tb(0, "08:30", "10:30"), frag("main", model.RolePrimary, "R1", "x (30)")))
	if err != nil {
		t.Fatalf("Structure() error = %v", err)
	}
	if models.calls != 3 || len(resp.Sessions) != 1 {
		t.Errorf("calls = %d, sessions = %d", models.calls, len(resp.Sessions))
	}
}

func TestGeminiGivesUp(t *testing.T) {
	boom := errors.New("quota")
	models := &fakeModels{errs: []error{boom, boom, boom}}
	_, err := testGemini(models).Structure(context.Background(),
		request(tb(0, "08:30", "10:30"), frag("main", model.RolePrimary, "R1", "x")))
	if !errors.Is(err, boom) || models.calls != 3 {
		t.Errorf("error = %v after %d calls", err, models.calls)
	}
}

func TestGeminiMalformedJSONRetried(t *testing.T) {
	models := &fakeModels{replies: []string{"not json", `[]`}}
	resp, err := testGemini(models).Structure(context.Background(),
		request(tb(0, "08:30", "10:30"), frag("main", model.RolePrimary, "R1", "Opening — John")))
	if err != nil {
		t.Fatalf("Structure() error = %v", err)
	}
	if models.calls != 2 {
		t.Errorf("calls = %d, want 2", models.calls)
	}
	// An empty answer falls back to one whole-block session.
	if len(resp.Sessions) != 1 || resp.Sessions[0].Name != "Opening" || resp.Sessions[0].Interval().Duration() != 120 {
		t.Errorf("sessions = %+v", resp.Sessions)
	}
}

func TestGeminiNoFragments(t *testing.T) {
	models := &fakeModels{}
	resp, err := testGemini(models).Structure(context.Background(), request(tb(0, "08:30", "10:30")))
	if err != nil || len(resp.Sessions) != 0 || models.calls != 0 {
		t.Errorf("Structure() = %+v, %v after %d calls", resp, err, models.calls)
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), GeminiOptions{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("error = %v, want ErrMissingAPIKey", err)
	}
}
