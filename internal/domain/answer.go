package domain

// Unanswered is the predicted choice recorded when no choice could be
// extracted or every solve attempt failed.
const Unanswered = 0

// FailedReasoning is the rationale recorded for a problem whose solve
// attempts were all exhausted.
const FailedReasoning = "[solve failed]"

// Answer is the recorded outcome of attempting one Problem. Exactly one
// Answer is produced per problem and it is immutable once appended to the
// result log.
type Answer struct {
	ProblemID int    `json:"problem_id"`
	Predicted int    `json:"predicted"` // Unanswered when no choice was produced
	Actual    int    `json:"actual"`
	IsCorrect bool   `json:"is_correct"`
	Reasoning string `json:"reasoning"`
	Score     int    `json:"score"`
}

// NewAnswer pairs a prediction with the problem's expected choice and weight.
func NewAnswer(p Problem, predicted int, reasoning string) Answer {
	return Answer{
		ProblemID: p.ID,
		Predicted: predicted,
		Actual:    p.Answer,
		IsCorrect: predicted == p.Answer,
		Reasoning: reasoning,
		Score:     p.Score,
	}
}

// FailedAnswer is the sentinel outcome for a problem that could not be solved.
func FailedAnswer(p Problem) Answer {
	return Answer{
		ProblemID: p.ID,
		Predicted: Unanswered,
		Actual:    p.Answer,
		IsCorrect: false,
		Reasoning: FailedReasoning,
		Score:     p.Score,
	}
}

// EarnedScore returns Score when the answer is correct and zero otherwise.
func (a Answer) EarnedScore() int {
	if a.IsCorrect {
		return a.Score
	}
	return 0
}

// Mark renders the answer's correctness as O or X.
func (a Answer) Mark() string {
	if a.IsCorrect {
		return "O"
	}
	return "X"
}
