package domain

// Summary aggregates a result log. It is always recomputed from the durable
// log so that answers recorded by earlier, interrupted runs are counted.
type Summary struct {
	Total     int `json:"total"`      // Problems recorded
	Correct   int `json:"correct"`    // Problems answered correctly
	Earned    int `json:"earned"`     // Points earned
	MaxPoints int `json:"max_points"` // Points available across recorded problems
}

// Add folds one answer into the summary.
func (s *Summary) Add(a Answer) {
	s.Total++
	if a.IsCorrect {
		s.Correct++
	}
	s.Earned += a.EarnedScore()
	s.MaxPoints += a.Score
}

// Wrong returns the number of incorrect answers.
func (s Summary) Wrong() int { return s.Total - s.Correct }

// Accuracy returns the percentage of correct answers, or 0 for an empty log.
func (s Summary) Accuracy() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total) * 100
}

// ScoreRate returns earned points as a percentage of available points.
func (s Summary) ScoreRate() float64 {
	if s.MaxPoints == 0 {
		return 0
	}
	return float64(s.Earned) / float64(s.MaxPoints) * 100
}
