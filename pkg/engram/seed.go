package engram

import (
	"context"
	"fmt"

	"github.com/papercomputeco/engram/pkg/memory"
)

// SeedDemo fills the store with a small demo corpus so recall, stats,
// sweep, and the TUI have something to show on a fresh install. With
// overwrite, existing records are deleted first. Returns how many
// memories were written.
func SeedDemo(ctx context.Context, driver memory.Driver, overwrite bool) (int, error) {
	if overwrite {
		records, err := driver.All(ctx)
		if err != nil {
			return 0, fmt.Errorf("scanning store before overwrite: %w", err)
		}
		for _, rec := range records {
			if _, err := driver.Delete(ctx, rec.ID); err != nil {
				return 0, fmt.Errorf("clearing store: %w", err)
			}
		}
	}

	drafts := demoCorpus()
	for _, draft := range drafts {
		if _, err := driver.Create(ctx, draft); err != nil {
			return 0, fmt.Errorf("seeding %q: %w", draft.Content, err)
		}
	}

	return len(drafts), nil
}

func demoCorpus() []memory.Draft {
	f := func(v float64) *float64 { return &v }

	return []memory.Draft{
		{Type: memory.TypeFact, Content: "Maya works as a botanical illustrator", Importance: f(7), RelatedUser: "maya"},
		{Type: memory.TypeFact, Content: "Allergic to shellfish, carries an epi-pen", Importance: f(10), Tags: []string{"health"}, RelatedUser: "maya"},
		{Type: memory.TypeFact, Content: "Grew up in a small coastal town and misses the fog", Importance: f(5), EmotionalWeight: f(2), RelatedUser: "maya"},
		{Type: memory.TypePreference, Content: "Loves fresh rye bread from the corner bakery", Importance: f(6), Tags: []string{"food"}, RelatedUser: "maya"},
		{Type: memory.TypePreference, Content: "Prefers tea over coffee, especially lapsang souchong", Importance: f(5), Tags: []string{"food"}, RelatedUser: "maya"},
		{Type: memory.TypePreference, Content: "Likes walking meetings instead of video calls", Importance: f(4), RelatedUser: "maya"},
		{Type: memory.TypeEvent, Content: "Went hiking at sunrise and saw a family of deer", Context: "weekend trip", Importance: f(6), EmotionalWeight: f(3), Tags: []string{"outdoors"}},
		{Type: memory.TypeEvent, Content: "Burned the first batch of sourdough and laughed it off", Importance: f(3), EmotionalWeight: f(1), Tags: []string{"food"}},
		{Type: memory.TypeEvent, Content: "Stayed up late finishing the fern commission", Context: "work crunch", Importance: f(5), EmotionalWeight: f(-2)},
		{Type: memory.TypeMilestone, Content: "First gallery showing of the botanical series", Importance: f(9), EmotionalWeight: f(5), Tags: []string{"work", "art"}},
		{Type: memory.TypeMilestone, Content: "Adopted a retired greyhound named Biscuit", Importance: f(8), EmotionalWeight: f(4), Tags: []string{"pets"}},
		{Type: memory.TypeRequest, Content: "Asked me to stop using emoji in replies", Importance: f(8), RelatedUser: "maya"},
		{Type: memory.TypeRequest, Content: "Wants a reminder to stretch when working late", Importance: f(6), RelatedUser: "maya"},
		{Type: memory.TypePattern, Content: "Gets quiet and short when a deadline is close", Importance: f(7), EmotionalWeight: f(-1), RelatedUser: "maya"},
		{Type: memory.TypePattern, Content: "Brightens up whenever the conversation turns to plants", Importance: f(6), EmotionalWeight: f(2), RelatedUser: "maya"},
		{Type: memory.TypeReflection, Content: "Maya opens up more on walks than in scheduled check-ins", Importance: f(6), EmotionalWeight: f(1)},
	}
}
