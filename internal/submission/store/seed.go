package store

import (
	"leanquest/internal/achievement"
	"leanquest/internal/score"
	"leanquest/internal/submission"
	"leanquest/pkg/domain"
)

// Fixed template ids so dev clients and seed data agree across restarts.
var (
	seedFiveSID    = mustTemplateID("0b2f8c3a-1d4e-4f6a-9b8c-2e5d7a1f3c60")
	seedLPAID      = mustTemplateID("4a9d2e1b-6c3f-4e8a-b1d5-7f0c9e2a4b81")
	seedIshikawaID = mustTemplateID("8c1e4f7d-2a5b-4c9e-a3f6-1b8d0e5c7a92")
)

// SeedTemplates returns the built-in audit checklist catalog used in dev and
// demo mode. Production deployments load templates from their own source.
func SeedTemplates() []submission.Template {
	return []submission.Template{
		{
			ID:         seedFiveSID,
			Name:       "5S Shopfloor Audit",
			Category:   achievement.CategoryFiveS,
			BaseReward: 100,
			Items: []score.ChecklistItem{
				{ID: "sort", Prompt: "Only required items are present at the workstation", Expected: "yes", Weight: 5},
				{ID: "set", Prompt: "Tools have marked home positions and are in them", Expected: "yes", Weight: 5},
				{ID: "shine", Prompt: "Work area is clean and sources of dirt are addressed", Expected: "yes", Weight: 5},
				{ID: "standardize", Prompt: "Visual standards are posted and current", Expected: "yes", Weight: 5},
				{ID: "sustain", Prompt: "Previous audit actions are closed", Expected: "yes", Weight: 5},
			},
		},
		{
			ID:         seedLPAID,
			Name:       "Layered Process Audit: Line Walk",
			Category:   achievement.CategoryLPA,
			BaseReward: 150,
			Items: []score.ChecklistItem{
				{ID: "standard-work", Prompt: "Operator follows the posted standard work", Expected: "yes", Weight: 10},
				{ID: "poka-yoke", Prompt: "Error-proofing devices are functional and unverified bypasses absent", Expected: "yes", Weight: 10},
				{ID: "first-piece", Prompt: "First-piece inspection record exists for the running lot", Expected: "yes", Weight: 5},
				{ID: "escalation", Prompt: "Operator can name the andon escalation path", Expected: "yes", Weight: 5},
			},
		},
		{
			ID:         seedIshikawaID,
			Name:       "Ishikawa Root-Cause Workshop",
			Category:   achievement.CategoryIshikawa,
			BaseReward: 200,
			Items: []score.ChecklistItem{
				{ID: "problem", Prompt: "Problem statement is specific and measurable", Expected: "yes", Weight: 10},
				{ID: "bones", Prompt: "All six cause categories were explored", Expected: "yes", Weight: 10},
				{ID: "five-why", Prompt: "Leading causes were taken through 5-Why", Expected: "yes", Weight: 10},
				{ID: "verify", Prompt: "Root cause verified by turning the problem on and off", Expected: "yes", Weight: 15},
				{ID: "actions", Prompt: "Countermeasures have owners and due dates", Expected: "yes", Weight: 5},
			},
		},
	}
}

func mustTemplateID(s string) domain.TemplateID {
	id, err := domain.ParseTemplateID(s)
	if err != nil {
		panic(err)
	}
	return id
}
