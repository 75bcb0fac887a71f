package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFinalizeRuleAllows(t *testing.T) {
	active := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		job  Job
		rule FinalizeRule
		want bool
	}{
		{name: "all reported", job: Job{CreditsReserved: 2, CompletedImages: 1, FailedImages: 1, UpdatedAt: active}, want: true},
		{name: "still running", job: Job{CreditsReserved: 2, CompletedImages: 1, UpdatedAt: active}, rule: FinalizeRule{IdleSince: active.Add(-time.Minute)}, want: false},
		{name: "idle", job: Job{CreditsReserved: 2, CompletedImages: 1, UpdatedAt: active}, rule: FinalizeRule{IdleSince: active.Add(time.Minute)}, want: true},
		{name: "forced", job: Job{CreditsReserved: 2, UpdatedAt: active}, rule: FinalizeRule{Force: true}, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.rule.Allows(tc.job))
		})
	}
}

func TestClassifyOutcome(t *testing.T) {
	assert.Equal(t, JobStatusCompleted, ClassifyOutcome(3, 0))
	assert.Equal(t, JobStatusPartial, ClassifyOutcome(2, 1))
	assert.Equal(t, JobStatusFailed, ClassifyOutcome(0, 3))
}
