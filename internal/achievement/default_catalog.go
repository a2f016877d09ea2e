package achievement

// DefaultCatalog is the shipped rule set. At least one rule of every supported
// kind so every predicate path is exercised in production, not just in tests.
func DefaultCatalog() []Rule {
	return []Rule{
		FirstCompletion(Definition{
			ID:          "first-steps",
			Title:       "First Steps",
			Description: "Complete your first audit",
			Icon:        IconMedal,
		}),
		CompletionCount(Definition{
			ID:          "getting-started",
			Title:       "Getting Started",
			Description: "Complete 5 activities",
			Icon:        IconClipboard,
		}, 5),
		CompletionCount(Definition{
			ID:          "seasoned-auditor",
			Title:       "Seasoned Auditor",
			Description: "Complete 25 activities",
			Icon:        IconTrophy,
		}, 25),
		LevelThreshold(Definition{
			ID:          "moving-up",
			Title:       "Moving Up",
			Description: "Reach level 3",
			Icon:        IconFlame,
		}, 3),
		LevelThreshold(Definition{
			ID:          "lean-leader",
			Title:       "Lean Leader",
			Description: "Reach level 7",
			Icon:        IconCrown,
		}, 7),
		PerfectScoreIn(Definition{
			ID:          "spotless",
			Title:       "Spotless",
			Description: "Score 100 on a 5S audit",
			Icon:        IconBroom,
		}, CategoryFiveS),
		PerfectScoreIn(Definition{
			ID:          "root-cause-ace",
			Title:       "Root Cause Ace",
			Description: "Score 100 on an Ishikawa analysis",
			Icon:        IconFishbone,
		}, CategoryIshikawa),
		CategoryCompletion(Definition{
			ID:          "layer-by-layer",
			Title:       "Layer by Layer",
			Description: "Complete 10 layered process audits",
			Icon:        IconClipboard,
		}, CategoryLPA, 10),
		LifetimeScore(Definition{
			ID:          "point-collector",
			Title:       "Point Collector",
			Description: "Accumulate 1000 total score",
			Icon:        IconTrophy,
		}, 1000),
	}
}
