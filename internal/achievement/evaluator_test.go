package achievement

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type EvaluatorSuite struct {
	suite.Suite
	clock time.Time
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	s.clock = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
}

func (s *EvaluatorSuite) newEvaluator(rules []Rule, unlocked map[ID]time.Time) *Evaluator {
	return NewEvaluator(rules, unlocked, WithClock(func() time.Time { return s.clock }))
}

func (s *EvaluatorSuite) TestEvaluate() {
	s.Run("first completion unlocks on first game", func() {
		e := s.newEvaluator(DefaultCatalog(), nil)
		newly := e.Evaluate(PlayerStats{Level: 1, GamesCompleted: 1, TotalScore: 80}, Activity{})
		s.Require().Len(newly, 1)
		s.Equal(ID("first-steps"), newly[0].ID)
		s.Equal(s.clock, newly[0].UnlockedAt)
	})

	s.Run("already unlocked ids are never re-emitted", func() {
		e := s.newEvaluator(DefaultCatalog(), map[ID]time.Time{"first-steps": s.clock.Add(-time.Hour)})
		newly := e.Evaluate(PlayerStats{Level: 1, GamesCompleted: 2, TotalScore: 150}, Activity{})
		s.Empty(newly)
	})

	s.Run("count threshold unlocks exactly at the transition", func() {
		e := s.newEvaluator(DefaultCatalog(), map[ID]time.Time{"first-steps": s.clock})

		newly := e.Evaluate(PlayerStats{Level: 1, GamesCompleted: 4, TotalScore: 300}, Activity{})
		s.Empty(newly, "4 completions should not unlock the 5-completion rule")

		newly = e.Evaluate(PlayerStats{Level: 1, GamesCompleted: 5, TotalScore: 380}, Activity{})
		s.Require().Len(newly, 1)
		s.Equal(ID("getting-started"), newly[0].ID)

		newly = e.Evaluate(PlayerStats{Level: 1, GamesCompleted: 6, TotalScore: 460}, Activity{})
		s.Empty(newly, "the 6th completion must not unlock it again")
	})

	s.Run("perfect score matches structured category", func() {
		e := s.newEvaluator(DefaultCatalog(), map[ID]time.Time{"first-steps": s.clock})
		newly := e.Evaluate(
			PlayerStats{Level: 1, GamesCompleted: 2, TotalScore: 180},
			Activity{Label: "Morning Warehouse Walk", Category: CategoryFiveS, Score: 100},
		)
		s.Require().Len(newly, 1)
		s.Equal(ID("spotless"), newly[0].ID)
	})

	s.Run("perfect score falls back to label match for legacy records", func() {
		e := s.newEvaluator(DefaultCatalog(), map[ID]time.Time{"first-steps": s.clock})
		newly := e.Evaluate(
			PlayerStats{Level: 1, GamesCompleted: 2, TotalScore: 180},
			Activity{Label: "5S Warehouse Audit", Score: 100},
		)
		s.Require().Len(newly, 1)
		s.Equal(ID("spotless"), newly[0].ID)
	})

	s.Run("imperfect score does not unlock perfect-score rules", func() {
		e := s.newEvaluator(DefaultCatalog(), map[ID]time.Time{"first-steps": s.clock})
		newly := e.Evaluate(
			PlayerStats{Level: 1, GamesCompleted: 2, TotalScore: 180},
			Activity{Category: CategoryFiveS, Score: 99},
		)
		s.Empty(newly)
	})

	s.Run("category completion counts only the matching category", func() {
		e := s.newEvaluator(DefaultCatalog(), map[ID]time.Time{"first-steps": s.clock})
		stats := PlayerStats{
			Level:             2,
			GamesCompleted:    12,
			TotalScore:        700,
			CategoryCompleted: map[Category]int{CategoryLPA: 10, CategoryFiveS: 2},
		}
		newly := e.Evaluate(stats, Activity{Category: CategoryLPA, Score: 70})
		ids := idsOf(newly)
		s.Contains(ids, ID("layer-by-layer"))
	})

	s.Run("multiple rules can unlock in a single pass", func() {
		e := s.newEvaluator(DefaultCatalog(), nil)
		stats := PlayerStats{Level: 3, GamesCompleted: 5, TotalScore: 1000}
		newly := e.Evaluate(stats, Activity{Category: CategoryFiveS, Score: 100})
		ids := idsOf(newly)
		s.ElementsMatch(ids, []ID{"first-steps", "getting-started", "moving-up", "spotless", "point-collector"})
	})
}

func (s *EvaluatorSuite) TestOrderIndependence() {
	stats := PlayerStats{Level: 7, GamesCompleted: 25, TotalScore: 2400,
		CategoryCompleted: map[Category]int{CategoryLPA: 10}}
	last := Activity{Category: CategoryIshikawa, Score: 100}

	reference := idsOf(s.newEvaluator(DefaultCatalog(), nil).Evaluate(stats, last))
	s.Require().NotEmpty(reference)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := DefaultCatalog()
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got := idsOf(s.newEvaluator(shuffled, nil).Evaluate(stats, last))
		s.ElementsMatch(reference, got, "permutation %d changed the unlocked set", i)
	}
}

func (s *EvaluatorSuite) TestConcurrentEvaluationsNeverDuplicate() {
	e := s.newEvaluator(DefaultCatalog(), nil)
	stats := PlayerStats{Level: 3, GamesCompleted: 5, TotalScore: 1000}

	const goroutines = 16
	results := make(chan []Unlocked, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- e.Evaluate(stats, Activity{Category: CategoryFiveS, Score: 100})
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[ID]int)
	for batch := range results {
		for _, u := range batch {
			seen[u.ID]++
		}
	}
	for id, count := range seen {
		s.Equal(1, count, "achievement %s emitted %d times", id, count)
	}
}

func (s *EvaluatorSuite) TestUnlockedSetIsACopy() {
	e := s.newEvaluator(DefaultCatalog(), nil)
	e.Evaluate(PlayerStats{GamesCompleted: 1}, Activity{})
	set := e.UnlockedSet()
	delete(set, "first-steps")
	s.Contains(e.UnlockedSet(), ID("first-steps"))
}

func idsOf(unlocked []Unlocked) []ID {
	ids := make([]ID, 0, len(unlocked))
	for _, u := range unlocked {
		ids = append(ids, u.ID)
	}
	return ids
}

func TestResolveIcon(t *testing.T) {
	suite := []struct {
		in   IconID
		want IconID
	}{
		{IconTrophy, IconTrophy},
		{IconID("no-such-icon"), IconFallback},
		{IconID(""), IconFallback},
	}
	for _, tc := range suite {
		if got := ResolveIcon(tc.in); got != tc.want {
			t.Fatalf("ResolveIcon(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
