package achievement

import "strings"

// Rule couples a catalog definition with its unlock predicate. Rules are
// declarative and independent: no predicate may read another rule's outcome,
// which keeps evaluation order irrelevant.
type Rule struct {
	Definition
	Satisfied func(stats PlayerStats, last Activity) bool
}

// LabelContains is a case-insensitive substring match on activity labels.
// Only used as a fallback for records without a structured category.
func LabelContains(label, fragment string) bool {
	return strings.Contains(strings.ToLower(label), strings.ToLower(fragment))
}

// FirstCompletion unlocks after the first completed activity.
func FirstCompletion(def Definition) Rule {
	return Rule{Definition: def, Satisfied: func(stats PlayerStats, _ Activity) bool {
		return stats.GamesCompleted >= 1
	}}
}

// CompletionCount unlocks once the player has completed n activities of any kind.
func CompletionCount(def Definition, n int) Rule {
	def.Target = n
	return Rule{Definition: def, Satisfied: func(stats PlayerStats, _ Activity) bool {
		return stats.GamesCompleted >= n
	}}
}

// LevelThreshold unlocks when the player reaches level n.
func LevelThreshold(def Definition, n int) Rule {
	def.Target = n
	return Rule{Definition: def, Satisfied: func(stats PlayerStats, _ Activity) bool {
		return stats.Level >= n
	}}
}

// PerfectScoreIn unlocks on a 100-point activity in the given category.
func PerfectScoreIn(def Definition, c Category) Rule {
	return Rule{Definition: def, Satisfied: func(_ PlayerStats, last Activity) bool {
		return last.Score == 100 && last.InCategory(c)
	}}
}

// CategoryCompletion unlocks when the player has completed n activities in the
// given category. The per-category counter is a player aggregate so the rule
// stays independent of evaluation order.
func CategoryCompletion(def Definition, c Category, n int) Rule {
	def.Target = n
	return Rule{Definition: def, Satisfied: func(stats PlayerStats, _ Activity) bool {
		return stats.CategoryCompleted[c] >= n
	}}
}

// LifetimeScore unlocks once the player's cumulative score reaches n.
func LifetimeScore(def Definition, n int) Rule {
	def.Target = n
	return Rule{Definition: def, Satisfied: func(stats PlayerStats, _ Activity) bool {
		return stats.TotalScore >= n
	}}
}
