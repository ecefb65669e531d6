package service

import (
	"time"

	"github.com/scioarena/scioarena/internal/model"
)

// Availability is the result of the scheduling gate.
type Availability struct {
	Available bool
	Reason    string
}

// EvaluateAvailability decides whether an attempt may start or continue at
// the given instant. It is the single scheduling check used both for starting
// attempts and for rendering "take test" links; do not fork copies of it.
//
// A published test with no schedule is always available. The late window
// extends the deadline: deadline = allowLateUntil if set, else endAt.
func EvaluateAvailability(test *model.Test, now time.Time) Availability {
	if test.Status != model.TestStatusPublished {
		return Availability{Available: false, Reason: "not published"}
	}
	if test.StartAt != nil && now.Before(*test.StartAt) {
		return Availability{Available: false, Reason: "not yet open"}
	}
	deadline := test.EndAt
	if test.AllowLateUntil != nil {
		deadline = test.AllowLateUntil
	}
	if deadline != nil && now.After(*deadline) {
		return Availability{Available: false, Reason: "past deadline"}
	}
	return Availability{Available: true}
}
