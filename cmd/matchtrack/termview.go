package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/clubhub/matchtrack/internal/protocol"
	"github.com/clubhub/matchtrack/internal/tracker"
)

// termView renders the match session as terminal lines. It implements
// tracker.View, timer.Display and roster.View, standing in for the web page.
type termView struct {
	mu  sync.Mutex
	out io.Writer
}

func newTermView(out io.Writer) *termView {
	return &termView{out: out}
}

func (v *termView) printf(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, format+"\n", args...)
}

// tracker.View

func (v *termView) SetScore(goalsFor, goalsAgainst int) {
	v.printf("score  %d : %d", goalsFor, goalsAgainst)
}

func (v *termView) SetPlayerGoals(playerID, goalsFor, goalsAgainst int) {
	v.printf("player %d goals %d/%d", playerID, goalsFor, goalsAgainst)
}

func (v *termView) SetPlayerShots(playerID, shotsFor, shotsAgainst int) {
	v.printf("player %d shots %d/%d", playerID, shotsFor, shotsAgainst)
}

func (v *termView) SetSideArmed(side tracker.Side, armed bool) {
	if armed {
		v.printf("side %s armed, player clicks register goals", side)
		return
	}
	v.printf("side %s disarmed", side)
}

func (v *termView) ShowGoalTypes(types []string) {
	v.printf("pick a goal type: %v", types)
}

func (v *termView) CloseGoalTypes() {
	v.printf("goal type overlay closed")
}

func (v *termView) SetStartPauseLabel(label string) {
	v.printf("clock button: %s", label)
}

func (v *termView) SetPeriod(part int) {
	v.printf("period %d", part)
}

func (v *termView) ShowEvents(events []protocol.MatchEvent) {
	for _, e := range events {
		v.printf("event  %2d' %s", e.Minute, e.Text)
	}
}

func (v *termView) ShowReservePlayers(players []protocol.Player) {
	for _, p := range players {
		v.printf("reserve %d %s", p.ID, p.Name)
	}
}

func (v *termView) SwapPlayer(playerOutID, playerInID int, playerInName string) {
	v.printf("substitution: %d out, %d (%s) in", playerOutID, playerInID, playerInName)
}

func (v *termView) ShowModal(text string) {
	v.printf("*** %s ***", text)
}

func (v *termView) ShowMatchEnd(matchID int) {
	v.printf("*** match %d has ended ***", matchID)
}

// timer.Display

func (v *termView) SetRemaining(text string) {
	v.printf("clock  %s", text)
}

func (v *termView) SetEndSignal(visible bool) {
	if visible {
		v.printf("clock  period ending")
	}
}

// roster.View

func (v *termView) RenderGroups(groups []protocol.PlayerGroup) {
	for _, g := range groups {
		max := "-"
		if g.PlayerMax > 0 {
			max = fmt.Sprintf("%d", g.PlayerMax)
		}
		v.printf("group %d %s (%s, max %s)", g.ID, g.Name, g.StartingType, max)
		for _, p := range g.Players {
			v.printf("  %d %s", p.ID, p.Name)
		}
	}
}

func (v *termView) RenderSearchResults(players []protocol.Player, checked map[int]bool) {
	for _, p := range players {
		mark := " "
		if checked[p.ID] {
			mark = "x"
		}
		v.printf("[%s] %d %s", mark, p.ID, p.Name)
	}
}

func (v *termView) Notify(message string) {
	v.printf("!! %s", message)
}
