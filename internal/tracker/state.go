package tracker

import "github.com/clubhub/matchtrack/internal/protocol"

// Side identifies a scoring side of the match.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// ActivationState is the controller's interaction state. At most one state is
// active; arming anything disarms whatever was armed before.
type ActivationState string

const (
	// StateIdle accepts side/switch clicks. Player clicks only do
	// something here when a shot-registration side is set.
	StateIdle ActivationState = "idle"
	// StateSideArmed routes the armed side's player clicks into the
	// goal-registration flow.
	StateSideArmed ActivationState = "side_armed"
	// StateSwitchArmed routes player clicks into the substitution flow.
	StateSwitchArmed ActivationState = "switch_armed"
	// StateAwaitingGoalType holds a pending goal context while the user
	// picks a goal type; further player clicks are ignored.
	StateAwaitingGoalType ActivationState = "awaiting_goal_type"
)

// PendingGoalContext correlates a player click with the goal-type pick that
// completes it. At most one exists at a time.
type PendingGoalContext struct {
	PlayerID int
	ForTeam  bool
	Intended protocol.Command
}

// Snapshot is a copy of the controller's interaction state, for assertions.
type Snapshot struct {
	State            ActivationState
	ArmedSide        Side
	ShotSide         Side
	HasPending       bool
	PendingPlayerID  int
	OutgoingPlayerID int
	Period           int
	MatchEnded       bool
}
