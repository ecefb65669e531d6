package service

import (
	"encoding/json"

	"github.com/scioarena/scioarena/internal/model"
)

// Per-kind deduction weights and caps. Capping each kind keeps a long event
// stream from driving the score below zero on a single behavior, and counting
// by kind makes the reduction a multiset operation: the same events in any
// arrival order produce the same score.
var proctorDeductions = map[model.ProctorEventKind]struct {
	PerEvent float64
	Cap      float64
}{
	model.ProctorTabSwitch:      {PerEvent: 3, Cap: 30},
	model.ProctorWindowBlur:     {PerEvent: 1, Cap: 10},
	model.ProctorFullscreenExit: {PerEvent: 5, Cap: 25},
	model.ProctorCopyPaste:      {PerEvent: 5, Cap: 20},
	model.ProctorRightClick:     {PerEvent: 1, Cap: 5},
}

// Every 30 seconds off page costs one point, up to 20.
const (
	timeOffPagePenaltyWindow = 30
	timeOffPagePenaltyCap    = 20.0
)

// ProctorSummary is the aggregation of an attempt's proctor events.
type ProctorSummary struct {
	Score              float64
	TabSwitchCount     int
	TimeOffPageSeconds int
}

type timeOffPageMetadata struct {
	Seconds int `json:"seconds"`
}

// ScoreProctorEvents reduces the event multiset to a 0-100 trust score.
// The function is deterministic, order-independent, and monotonically
// non-increasing in the number of negative-signal events.
func ScoreProctorEvents(events []model.ProctorEvent) ProctorSummary {
	counts := make(map[model.ProctorEventKind]int)
	summary := ProctorSummary{Score: 100}

	for _, ev := range events {
		counts[ev.Kind]++
		if ev.Kind == model.ProctorTimeOffPage && len(ev.Metadata) > 0 {
			var meta timeOffPageMetadata
			if err := json.Unmarshal(ev.Metadata, &meta); err == nil && meta.Seconds > 0 {
				summary.TimeOffPageSeconds += meta.Seconds
			}
		}
	}
	summary.TabSwitchCount = counts[model.ProctorTabSwitch]

	deduction := 0.0
	for kind, count := range counts {
		rule, ok := proctorDeductions[kind]
		if !ok {
			continue
		}
		d := rule.PerEvent * float64(count)
		if d > rule.Cap {
			d = rule.Cap
		}
		deduction += d
	}

	offPage := float64(summary.TimeOffPageSeconds / timeOffPagePenaltyWindow)
	if offPage > timeOffPagePenaltyCap {
		offPage = timeOffPagePenaltyCap
	}
	deduction += offPage

	summary.Score = 100 - deduction
	if summary.Score < 0 {
		summary.Score = 0
	}
	return summary
}
