package domain

import "errors"

// ErrInvalidProblem indicates that a problem in the input document violates
// its field constraints.
var ErrInvalidProblem = errors.New("invalid problem")

// ErrDuplicateProblem indicates that two problems share the same ID.
var ErrDuplicateProblem = errors.New("duplicate problem id")
