package domain

import "github.com/google/uuid"

// Session identifies the acting user for every core operation.
type Session struct {
	UserID uuid.UUID
}

// Result is the outcome of an operation whose secondary writes may fail
// without failing the operation itself.
type Result struct {
	Warnings []string `json:"warnings"`
}

func (r *Result) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (r *Result) OK() bool {
	return len(r.Warnings) == 0
}
