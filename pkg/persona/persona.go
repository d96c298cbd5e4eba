// Package persona tracks the agent's presentation state: its mood, energy,
// affection toward the user, and the behavioral mode it should answer in.
// The state survives restarts as a blob in the memory store and feeds the
// system prompt the chat loop sends to the model.
package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/utils"
)

// BlobKey is the store key the state persists under.
const BlobKey = "persona.state"

// DefaultName is used when no persona name has been configured.
const DefaultName = "Ember"

// Mode is the behavioral register the agent answers in.
type Mode string

const (
	ModeListening Mode = "listening"
	ModeSupport   Mode = "support"
	ModePlayful   Mode = "playful"
	ModeFocused   Mode = "focused"
)

// moods ordered by valence. Relaxation walks the index toward neutral.
var moods = []string{"down", "subdued", "neutral", "warm", "delighted"}

const (
	// MoodNeutral is the resting mood.
	MoodNeutral = "neutral"

	// moodHold is how many flat interactions a lifted or lowered mood
	// survives before relaxing one step toward neutral.
	moodHold = 3

	// liftThreshold is the absolute emotional weight required to move
	// the mood. Anything weaker only ages the current mood.
	liftThreshold = 2.0
)

// State is the persisted persona. Zero valued fields are normalized by
// NewState; load through Load rather than constructing directly.
type State struct {
	Name      string    `json:"name"`
	Mood      string    `json:"mood"`
	Energy    float64   `json:"energy"`
	Mode      Mode      `json:"mode"`
	Affection float64   `json:"affection"`
	MoodTurns int       `json:"mood_turns"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState returns the resting state for a named persona.
func NewState(name string) State {
	if name == "" {
		name = DefaultName
	}

	return State{
		Name:   name,
		Mood:   MoodNeutral,
		Energy: 0.5,
		Mode:   ModeListening,
	}
}

// Load reads the persisted state from the store, falling back to a fresh
// state under name when none has been saved yet.
func Load(ctx context.Context, driver memory.Driver, name string) (State, error) {
	raw, found, err := driver.LoadBlob(ctx, BlobKey)
	if err != nil {
		return State{}, fmt.Errorf("loading persona state: %w", err)
	}
	if !found {
		return NewState(name), nil
	}

	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return State{}, fmt.Errorf("decoding persona state: %w", err)
	}
	if s.Name == "" {
		s.Name = name
	}
	if s.Mood == "" {
		s.Mood = MoodNeutral
	}
	if s.Mode == "" {
		s.Mode = ModeListening
	}

	return s, nil
}

// Save persists the state, stamping UpdatedAt.
func (s *State) Save(ctx context.Context, driver memory.Driver) error {
	s.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding persona state: %w", err)
	}

	if err := driver.SaveBlob(ctx, BlobKey, raw); err != nil {
		return fmt.Errorf("saving persona state: %w", err)
	}

	return nil
}

// Apply folds one interaction's emotional weight into the state. Weight at
// or above the lift threshold raises mood, energy, and affection; weight at
// or below the negative threshold lowers them. Anything in between ages the
// current mood, and a mood that has been held for moodHold flat turns
// relaxes one step toward neutral.
func (s *State) Apply(weight float64) {
	switch {
	case weight >= liftThreshold:
		s.shiftMood(1)
		s.Energy = clamp(s.Energy+0.1, 0, 1)
		s.Affection = clamp(s.Affection+weight/10, 0, 10)
		s.MoodTurns = moodHold
	case weight <= -liftThreshold:
		s.shiftMood(-1)
		s.Energy = clamp(s.Energy-0.1, 0, 1)
		s.Affection = clamp(s.Affection+weight/20, 0, 10)
		s.MoodTurns = moodHold
	default:
		if s.Mood == MoodNeutral {
			return
		}
		s.MoodTurns--
		if s.MoodTurns <= 0 {
			s.relax()
			s.MoodTurns = moodHold
		}
	}
}

func (s *State) shiftMood(delta int) {
	i := moodIndex(s.Mood) + delta
	if i < 0 {
		i = 0
	}
	if i >= len(moods) {
		i = len(moods) - 1
	}
	s.Mood = moods[i]
}

func (s *State) relax() {
	i := moodIndex(s.Mood)
	neutral := moodIndex(MoodNeutral)
	switch {
	case i > neutral:
		s.Mood = moods[i-1]
	case i < neutral:
		s.Mood = moods[i+1]
	}
}

func moodIndex(mood string) int {
	for i, m := range moods {
		if m == mood {
			return i
		}
	}
	return moodIndex(MoodNeutral)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// modeCues are checked in order: emotional cues outrank task cues, so a
// stressed message about work gets comfort before productivity.
var modeCues = []struct {
	mode Mode
	cues []string
}{
	{ModeSupport, []string{
		"sad", "worried", "anxious", "stressed", "overwhelmed", "tired",
		"lonely", "scared", "hurt", "rough day", "miss ",
	}},
	{ModeFocused, []string{
		"help me", "how do", "how can", "plan", "deadline", "schedule",
		"fix", "build", "task", "work on", "figure out",
	}},
	{ModePlayful, []string{
		"haha", "lol", "joke", "silly", "fun", "play", "guess what",
	}},
}

// DetectMode picks the behavioral mode for a user message. Messages that
// match no cue get the listening mode.
func DetectMode(input string) Mode {
	text := strings.ToLower(input)
	for _, group := range modeCues {
		for _, cue := range group.cues {
			if strings.Contains(text, cue) {
				return group.mode
			}
		}
	}

	return ModeListening
}

var modeGuidance = map[Mode]string{
	ModeListening: "Listen closely, reflect back what you hear, and ask one gentle follow-up.",
	ModeSupport:   "Be warm and steady. Comfort first; offer solutions only if asked.",
	ModePlayful:   "Keep it light. Banter and callbacks to shared memories are welcome.",
	ModeFocused:   "Be concrete and efficient. Help them get the thing done.",
}

// BuildSystemPrompt assembles the system prompt for one chat turn: the
// persona header, the current mood and mode, and a section listing what the
// agent remembers about the user.
func BuildSystemPrompt(s State, records []memory.Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a companion who keeps a long memory of this user.\n", s.Name)
	fmt.Fprintf(&b, "Current mood: %s (energy %.1f, affection %.1f). Mode: %s.\n", s.Mood, s.Energy, s.Affection, s.Mode)
	if guidance, ok := modeGuidance[s.Mode]; ok {
		b.WriteString(guidance)
		b.WriteString("\n")
	}

	if len(records) > 0 {
		b.WriteString("\nWhat you remember about them:\n")
		for _, rec := range records {
			fmt.Fprintf(&b, "- [%s] %s\n", rec.Type, utils.Truncate(rec.Content, 160))
		}
	}

	b.WriteString("\nStay grounded in what you actually remember. Never invent a memory.")

	return b.String()
}
