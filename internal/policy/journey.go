package policy

import "fmt"

// Stage is a step of the user journey through the portal
type Stage string

const (
	StageNoRole            Stage = "no_role"
	StageRoleSelected      Stage = "role_selected"
	StageAuthenticated     Stage = "authenticated"
	StageReportSelected    Stage = "report_selected"
	StageDashboardRendered Stage = "dashboard_rendered"
	StageLoggedOut         Stage = "logged_out"
)

var stageRank = map[Stage]int{
	StageNoRole:            0,
	StageLoggedOut:         0,
	StageRoleSelected:      1,
	StageAuthenticated:     2,
	StageReportSelected:    3,
	StageDashboardRendered: 4,
}

// Transition validates a move between stages. Logging out is always
// allowed, backward moves are allowed, and forward moves advance one step at
// most. Re-entering the current stage is allowed.
func Transition(from, to Stage) error {
	if from == "" {
		from = StageNoRole
	}
	if to == StageLoggedOut {
		return nil
	}
	fromRank, ok := stageRank[from]
	if !ok {
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidTransition, from)
	}
	toRank, ok := stageRank[to]
	if !ok {
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidTransition, to)
	}
	if toRank > fromRank+1 {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Reached reports whether the journey has passed through stage
func Reached(current, stage Stage) bool {
	return stageRank[current] >= stageRank[stage] && current != StageLoggedOut
}
