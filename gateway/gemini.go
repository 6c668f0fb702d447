package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/karlla1220/meetgrid/model"
)

// ErrMissingAPIKey is returned by NewGemini without an API key.
var ErrMissingAPIKey = errors.New("gemini: API key is required")

// Defaults for GeminiOptions.
const (
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultInterval    = time.Second
	DefaultRetries     = 3
	DefaultBackoff     = 5 * time.Second

	geminiConfidence = 0.8
)

const systemInstruction = `You read one time slot of a standards meeting schedule and list its sessions.

Cell text conventions:
- "(N)" after a line is that item's duration in minutes.
- A line whose duration equals the sum of the lines below it is a group header; report it as group_header of those items, not as a session.
- A trailing ", Name" is the chair.
- Agenda items look like "9.1.2" or "AI 10.5.4.1"; copy them into agenda_item.
- Lines without a duration are headers or chairs.

Use only room names from the given room list. Map other labels with the given hints.
When a fragment has no durations, report it as one session filling the slot.
Report sessions of each room in the order they appear.`

// generator is the part of the genai client Gemini uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiOptions configure NewGemini.
type GeminiOptions struct {
	APIKey   string
	Model    string        // DefaultGeminiModel if empty
	Interval time.Duration // minimum spacing between requests
	Retries  int           // attempts per slot
	Backoff  time.Duration // multiplied by the attempt number between attempts
	Logger   *zap.Logger
}

// Gemini structures slots with a Gemini model and a JSON response schema.
type Gemini struct {
	models  generator
	model   string
	limiter *rate.Limiter
	retries int
	backoff time.Duration
	log     *zap.Logger
}

// NewGemini connects to the Gemini API.
func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGemini(client.Models, opts), nil
}

func newGemini(models generator, opts GeminiOptions) *Gemini {
	g := &Gemini{
		models:  models,
		model:   opts.Model,
		retries: opts.Retries,
		backoff: opts.Backoff,
		log:     opts.Logger,
	}
	if g.model == "" {
		g.model = DefaultGeminiModel
	}
	if g.retries <= 0 {
		g.retries = DefaultRetries
	}
	if g.backoff < 0 {
		g.backoff = 0
	}
	if g.log == nil {
		g.log = zap.NewNop()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	g.limiter = rate.NewLimiter(rate.Every(interval), 1)
	return g
}

// geminiSession is one element of the model's JSON answer.
type geminiSession struct {
	RoomName        string `json:"room_name"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Chair           string `json:"chair"`
	GroupHeader     string `json:"group_header"`
	AgendaItem      string `json:"agenda_item"`
}

func responseSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"room_name":        str("room from the room list"),
				"name":             str("session title without duration or chair"),
				"duration_minutes": {Type: genai.TypeInteger},
				"chair":            str("chair name, if any"),
				"group_header":     str("enclosing group header, if any"),
				"agenda_item":      str("agenda item number such as 9.1.2, if any"),
			},
			Required: []string{"room_name", "name", "duration_minutes"},
		},
	}
}

// Structure implements Gateway.
func (g *Gemini) Structure(ctx context.Context, req Request) (Response, error) {
	frags := sessionFragments(req)
	if len(frags) == 0 {
		return Response{}, nil
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.1),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema(),
	}
	prompt := buildPrompt(req, frags)

	var lastErr error
	for attempt := 1; attempt <= g.retries; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return Response{}, err
		}
		sessions, err := g.generate(ctx, prompt, cfg)
		if err == nil {
			return g.toResponse(req, frags, sessions), nil
		}
		lastErr = err
		g.log.Warn("gemini attempt failed",
			zap.Stringer("slot", req.Slot()),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt == g.retries {
			break
		}
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case <-time.After(g.backoff * time.Duration(attempt)):
		}
	}
	return Response{}, fmt.Errorf("gemini: %d attempts failed: %w", g.retries, lastErr)
}

func (g *Gemini) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) ([]geminiSession, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return nil, err
	}
	raw := strings.TrimSpace(resp.Text())
	if raw == "" {
		return nil, nil
	}
	var sessions []geminiSession
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return sessions, nil
}

func buildPrompt(req Request, frags []model.Fragment) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Day: %s\nSlot: %s-%s (%d minutes)\n", req.Day, req.Block.Start, req.Block.End, req.Block.Duration())
	fmt.Fprintf(&sb, "Rooms: %s\n", strings.Join(req.Rooms, ", "))
	if len(req.Hint) > 0 {
		sb.WriteString("Hints:\n")
		for _, label := range sortedKeys(req.Hint) {
			fmt.Fprintf(&sb, "- %q means room %q\n", label, req.Hint[label])
		}
	}
	for i, f := range frags {
		fmt.Fprintf(&sb, "\nFragment %d (source %s, %s, rooms %s, %s):\n%s\n",
			i+1, f.SourceID, f.Role, strings.Join(f.Rooms, ", "), f.Time, f.Text)
	}
	return sb.String()
}

// toResponse lays the model's sessions back to back per room from the
// block start. An empty answer falls back to one session per fragment.
func (g *Gemini) toResponse(req Request, frags []model.Fragment, sessions []geminiSession) Response {
	var resp Response
	if len(sessions) == 0 {
		for _, f := range frags {
			for _, label := range f.Rooms {
				room := label
				if target, ok := req.Hint[label]; ok {
					room = target
				}
				resp.Sessions = append(resp.Sessions, fallback(splitLines(f.Text), fragmentWindow(req.Block, f), f.SourceID, room))
			}
		}
		return resp
	}

	cursor := make(map[string]model.Clock)
	for _, s := range sessions {
		if s.DurationMinutes <= 0 {
			continue
		}
		start, ok := cursor[s.RoomName]
		if !ok {
			start = req.Block.Start
		}
		c := Candidate{
			Name:       strings.TrimSpace(s.Name),
			Chair:      strings.TrimSpace(s.Chair),
			AgendaItem: strings.TrimSpace(s.AgendaItem),
			Room:       s.RoomName,
			Category:   strings.TrimSpace(s.GroupHeader),
			Start:      start,
			End:        start + model.Clock(s.DurationMinutes),
			Confidence: geminiConfidence,
			Sources:    sourcesFor(frags, s.RoomName, req.Hint),
		}
		cursor[s.RoomName] = c.End
		resp.Sessions = append(resp.Sessions, c)
	}
	return resp
}

// sourcesFor lists the sources whose fragments name room directly or
// through a hint. Without any, every source in the slot is credited.
func sourcesFor(frags []model.Fragment, room string, hint map[string]string) []string {
	if room == "" {
		return nil
	}
	var out, all []string
	add := func(list []string, id string) []string {
		for _, v := range list {
			if v == id {
				return list
			}
		}
		return append(list, id)
	}
	for _, f := range frags {
		all = add(all, f.SourceID)
		for _, label := range f.Rooms {
			if label == room || hint[label] == room {
				out = add(out, f.SourceID)
			}
		}
	}
	if len(out) == 0 {
		return all
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
