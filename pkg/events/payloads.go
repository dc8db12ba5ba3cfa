package events

// RunStarted is the payload of TypeRunStarted.
type RunStarted struct {
	Input     string `json:"input"`
	Output    string `json:"output"`
	Kind      string `json:"kind"`
	Model     string `json:"model"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Remaining int    `json:"remaining"`
}

// ProblemSolved is the payload of TypeProblemSolved. Failed marks the
// sentinel answer recorded after every attempt failed.
type ProblemSolved struct {
	ProblemID int    `json:"problem_id"`
	Predicted int    `json:"predicted"`
	Actual    int    `json:"actual"`
	IsCorrect bool   `json:"is_correct"`
	Score     int    `json:"score"`
	Earned    int    `json:"earned"`
	Attempts  int    `json:"attempts"`
	Failed    bool   `json:"failed"`
	ErrorType string `json:"error_type,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// RunFinished is the payload of TypeRunFinished. The retry fields cover
// attempts made by this run only.
type RunFinished struct {
	Processed         int     `json:"processed"`
	Total             int     `json:"total"`
	Correct           int     `json:"correct"`
	Earned            int     `json:"earned"`
	MaxPoints         int     `json:"max_points"`
	Accuracy          float64 `json:"accuracy"`
	Interrupted       bool    `json:"interrupted"`
	TotalAttempts     int64   `json:"total_attempts"`
	SuccessfulRetries int64   `json:"successful_retries"`
	FailedRetries     int64   `json:"failed_retries"`
	NonRetryable      int64   `json:"non_retryable"`
	RetryWaitMS       int64   `json:"retry_wait_ms"`
}
