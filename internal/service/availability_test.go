package service

import (
	"testing"
	"time"

	"github.com/scioarena/scioarena/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateAvailability(t *testing.T) {
	startAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	endAt := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	lateUntil := time.Date(2026, 3, 1, 11, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		test      model.Test
		now       time.Time
		available bool
		reason    string
	}{
		{
			name:      "draft is never available",
			test:      model.Test{Status: model.TestStatusDraft},
			now:       startAt,
			available: false,
			reason:    "not published",
		},
		{
			name:      "closed is never available",
			test:      model.Test{Status: model.TestStatusClosed},
			now:       startAt,
			available: false,
			reason:    "not published",
		},
		{
			name:      "published with no schedule is always open",
			test:      model.Test{Status: model.TestStatusPublished},
			now:       endAt.Add(24 * time.Hour),
			available: true,
		},
		{
			name:      "before start",
			test:      model.Test{Status: model.TestStatusPublished, StartAt: &startAt, EndAt: &endAt},
			now:       startAt.Add(-time.Second),
			available: false,
			reason:    "not yet open",
		},
		{
			name:      "exactly at start",
			test:      model.Test{Status: model.TestStatusPublished, StartAt: &startAt, EndAt: &endAt},
			now:       startAt,
			available: true,
		},
		{
			name:      "exactly at end",
			test:      model.Test{Status: model.TestStatusPublished, StartAt: &startAt, EndAt: &endAt},
			now:       endAt,
			available: true,
		},
		{
			name:      "after end without late window",
			test:      model.Test{Status: model.TestStatusPublished, StartAt: &startAt, EndAt: &endAt},
			now:       endAt.Add(time.Second),
			available: false,
			reason:    "past deadline",
		},
		{
			name: "late window extends the deadline",
			test: model.Test{
				Status: model.TestStatusPublished, StartAt: &startAt, EndAt: &endAt, AllowLateUntil: &lateUntil,
			},
			now:       endAt.Add(10 * time.Minute),
			available: true,
		},
		{
			name: "after late window",
			test: model.Test{
				Status: model.TestStatusPublished, StartAt: &startAt, EndAt: &endAt, AllowLateUntil: &lateUntil,
			},
			now:       lateUntil.Add(time.Second),
			available: false,
			reason:    "past deadline",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := EvaluateAvailability(&tc.test, tc.now)
			assert.Equal(t, tc.available, got.Available)
			if !tc.available {
				assert.Equal(t, tc.reason, got.Reason)
			}
		})
	}
}
