package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/karlla1220/meetgrid/model"
)

// Request is everything known about one slot.
type Request struct {
	Day       model.Day         `json:"day"`
	Block     model.TimeBlock   `json:"block"`
	Fragments []model.Fragment  `json:"fragments"`
	Rooms     []string          `json:"rooms"` // room labels of the day, primary first
	Hint      map[string]string `json:"hint,omitempty"`
}

// Slot returns the request's slot key.
func (r Request) Slot() model.SlotKey {
	return model.SlotKey{Day: r.Day, Block: r.Block.Index}
}

// Key identifies a request by content for caching.
type Key struct {
	Hash  string
	Day   model.Day
	Block int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/TB%d/%s", k.Day.Short(), k.Block, k.Hash)
}

// Key hashes the request content that can change the response: the block
// interval, fragments, room labels and hints.
func (r Request) Key() Key {
	content := struct {
		Start     model.Clock       `json:"start"`
		End       model.Clock       `json:"end"`
		Fragments []model.Fragment  `json:"fragments"`
		Rooms     []string          `json:"rooms"`
		Hint      map[string]string `json:"hint"`
	}{r.Block.Start, r.Block.End, r.Fragments, r.Rooms, r.Hint}

	// Marshalling plain structs, slices and string maps cannot fail, and map
	// keys are emitted sorted.
	b, _ := json.Marshal(content)
	sum := sha256.Sum256(b)
	return Key{Hash: hex.EncodeToString(sum[:]), Day: r.Day, Block: r.Block.Index}
}

// Candidate is one proposed session.
type Candidate struct {
	Name       string      `json:"name"`
	Chair      string      `json:"chair,omitempty"`
	AgendaItem string      `json:"agenda_item,omitempty"`
	Room       string      `json:"room"`
	Category   string      `json:"category,omitempty"`
	Start      model.Clock `json:"start"`
	End        model.Clock `json:"end"`
	Confidence float64     `json:"confidence"`
	Sources    []string    `json:"sources"`
}

// Interval returns the candidate's time range.
func (c Candidate) Interval() model.Interval {
	return model.Interval{Start: c.Start, End: c.End}
}

// Response is a gateway's answer for one slot.
type Response struct {
	Sessions []Candidate `json:"sessions"`
}

// Gateway structures one slot.
type Gateway interface {
	Structure(ctx context.Context, req Request) (Response, error)
}

// Func adapts a function to the Gateway interface.
type Func func(ctx context.Context, req Request) (Response, error)

// Structure calls f.
func (f Func) Structure(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// sessionFragments returns the fragments that may yield sessions.
func sessionFragments(req Request) []model.Fragment {
	out := make([]model.Fragment, 0, len(req.Fragments))
	for _, f := range req.Fragments {
		if !f.Continuation {
			out = append(out, f)
		}
	}
	return out
}
