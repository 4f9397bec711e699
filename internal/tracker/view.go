package tracker

import "github.com/clubhub/matchtrack/internal/protocol"

// Start/stop button labels. The label doubles as the button's state in the
// rendered page, so the controller sets it explicitly on every transition.
const (
	LabelStart      = "Start"
	LabelPause      = "Pause"
	LabelMatchEnded = "Match ended"
)

// View is the render surface for a live match session. The web client backs
// it with the page DOM; cmd/matchtrack backs it with the terminal; tests use
// a spy. The controller writes state into the view and never reads it back.
type View interface {
	SetScore(goalsFor, goalsAgainst int)
	SetPlayerGoals(playerID, goalsFor, goalsAgainst int)
	SetPlayerShots(playerID, shotsFor, shotsAgainst int)
	SetSideArmed(side Side, armed bool)
	ShowGoalTypes(types []string)
	CloseGoalTypes()
	SetStartPauseLabel(label string)
	SetPeriod(part int)
	ShowEvents(events []protocol.MatchEvent)
	ShowReservePlayers(players []protocol.Player)
	SwapPlayer(playerOutID, playerInID int, playerInName string)
	ShowModal(text string)
	ShowMatchEnd(matchID int)
}
