// Package achievement holds the static achievement catalog and the evaluator
// that decides which definitions a player has newly satisfied.
package achievement

import "time"

// ID is a stable catalog slug, e.g. "first-steps" or "five-s-master".
type ID string

// IconID is a closed enumeration of icon identifiers. Rendering layers map
// these to whatever asset system they use; unknown values fall back to
// IconFallback rather than failing.
type IconID string

const (
	IconFallback  IconID = "star"
	IconTrophy    IconID = "trophy"
	IconMedal     IconID = "medal"
	IconBroom     IconID = "broom"
	IconFishbone  IconID = "fishbone"
	IconClipboard IconID = "clipboard"
	IconFlame     IconID = "flame"
	IconCrown     IconID = "crown"
)

var knownIcons = map[IconID]struct{}{
	IconFallback: {}, IconTrophy: {}, IconMedal: {}, IconBroom: {},
	IconFishbone: {}, IconClipboard: {}, IconFlame: {}, IconCrown: {},
}

// ResolveIcon returns id if it is a known icon, IconFallback otherwise.
func ResolveIcon(id IconID) IconID {
	if _, ok := knownIcons[id]; ok {
		return id
	}
	return IconFallback
}

// Category classifies an activity. Matching on this structured field replaced
// the old label-substring matching, which broke whenever a scenario was
// renamed; LabelContains remains only for legacy records without a category.
type Category string

const (
	CategoryFiveS    Category = "5s"
	CategoryLPA      Category = "lpa"
	CategoryIshikawa Category = "ishikawa"
)

// Definition is one catalog entry. Target is the progress denominator shown
// in UIs for counting rules (zero for one-shot rules).
type Definition struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        IconID `json:"icon"`
	Target      int    `json:"target,omitempty"`
}

// Unlocked records that a player satisfied a definition. UnlockedAt is set
// exactly once; the id never unlocks twice.
type Unlocked struct {
	ID         ID        `json:"id"`
	UnlockedAt time.Time `json:"unlockedAt"`
}

// PlayerStats are the aggregates rules may predicate on. They come from the
// canonical (backend-refreshed) player record, never from stale client deltas.
type PlayerStats struct {
	Level             int
	GamesCompleted    int
	TotalScore        int
	CategoryCompleted map[Category]int
	Unlocked          map[ID]time.Time
}

// Activity describes the just-completed audit or game.
type Activity struct {
	Label    string
	Category Category
	Score    int
}

// InCategory reports whether the activity belongs to the given category,
// falling back to a case-agnostic label match for records predating the
// structured field.
func (a Activity) InCategory(c Category) bool {
	if a.Category != "" {
		return a.Category == c
	}
	return LabelContains(a.Label, string(c))
}
