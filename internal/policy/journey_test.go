package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from, to Stage
		ok       bool
	}{
		{StageNoRole, StageRoleSelected, true},
		{"", StageRoleSelected, true},
		{StageRoleSelected, StageAuthenticated, true},
		{StageAuthenticated, StageReportSelected, true},
		{StageReportSelected, StageDashboardRendered, true},
		{StageDashboardRendered, StageReportSelected, true},
		{StageDashboardRendered, StageRoleSelected, true},
		{StageDashboardRendered, StageDashboardRendered, true},
		{StageReportSelected, StageLoggedOut, true},
		{StageNoRole, StageLoggedOut, true},
		{StageLoggedOut, StageRoleSelected, true},

		{StageNoRole, StageAuthenticated, false},
		{StageRoleSelected, StageDashboardRendered, false},
		{StageAuthenticated, StageDashboardRendered, false},
		{StageLoggedOut, StageAuthenticated, false},
		{"bogus", StageRoleSelected, false},
		{StageNoRole, "bogus", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := Transition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestReached(t *testing.T) {
	assert.True(t, Reached(StageDashboardRendered, StageAuthenticated))
	assert.True(t, Reached(StageAuthenticated, StageAuthenticated))
	assert.False(t, Reached(StageRoleSelected, StageAuthenticated))
	assert.False(t, Reached(StageLoggedOut, StageNoRole))
}
