package tracker

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/clubhub/matchtrack/internal/protocol"
	"github.com/clubhub/matchtrack/internal/timer"
)

// Sender is the send capability of the match socket handle.
type Sender interface {
	Send(v any) error
}

// Config holds controller configuration.
type Config struct {
	// PeriodLength is the nominal period length used to reset the clock
	// display when a part ends without the server supplying one.
	PeriodLength time.Duration
	// ShowEndSignal enables the end-of-period affordance on the clock.
	ShowEndSignal bool
}

// Controller is the state machine for one live match session. It owns the
// mutually exclusive activation state for scoring, shot and substitution
// flows, the countdown lifecycle, and the request/response correlation
// between a player click and the goal-type pick that completes it.
//
// All state lives in controller fields; the view is write-only.
type Controller struct {
	cfg     Config
	sender  Sender
	view    View
	display timer.Display
	clock   clockwork.Clock

	mu        sync.Mutex
	state     ActivationState
	armedSide Side
	shotSide  Side
	pending   *PendingGoalContext
	outgoing  int // player id captured by the switch flow, 0 = none
	countdown *timer.Countdown
	period    int
	ended     bool
}

func New(cfg Config, sender Sender, view View, display timer.Display, clock clockwork.Clock) *Controller {
	if cfg.PeriodLength <= 0 {
		cfg.PeriodLength = 30 * time.Minute
	}
	return &Controller{
		cfg:     cfg,
		sender:  sender,
		view:    view,
		display: display,
		clock:   clock,
		state:   StateIdle,
		period:  1,
	}
}

// Register attaches the controller's inbound handlers to the router.
func (c *Controller) Register(r *protocol.Router) {
	r.Handle(protocol.CmdInLastEvent, c.handleLastEvent)
	r.Handle(protocol.CmdInPlayerShotChange, c.handlePlayerShotChange)
	r.Handle(protocol.CmdInPlayerGoalChange, c.handlePlayerGoalChange)
	r.Handle(protocol.CmdInGoalTypes, c.handleGoalTypes)
	r.Handle(protocol.CmdInTimerData, c.handleTimerData)
	r.Handle(protocol.CmdInPause, c.handlePause)
	r.Handle(protocol.CmdInTeamGoalChange, c.handleTeamGoalChange)
	r.Handle(protocol.CmdInNonActivePlayers, c.handleNonActivePlayers)
	r.Handle(protocol.CmdInPlayerChange, c.handlePlayerChange)
	r.Handle(protocol.CmdInPartEnd, c.handlePartEnd)
	r.Handle(protocol.CmdInMatchEnd, c.handleMatchEnd)
	r.Handle(protocol.CmdInError, c.handleError)
}

// RequestInitialState asks the server for the authoritative clock and event
// log. Called from the socket's OnOpen so every reconnect re-synchronizes;
// activation state is deliberately left alone across reconnects.
func (c *Controller) RequestInitialState() {
	c.send(protocol.Cmd(protocol.CmdOutGetTime))
	c.send(protocol.Cmd(protocol.CmdOutLastEvent))
}

// Snapshot returns a copy of the interaction state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		State:            c.state,
		ArmedSide:        c.armedSide,
		ShotSide:         c.shotSide,
		HasPending:       c.pending != nil,
		OutgoingPlayerID: c.outgoing,
		Period:           c.period,
		MatchEnded:       c.ended,
	}
	if c.pending != nil {
		s.PendingPlayerID = c.pending.PlayerID
	}
	return s
}

// ClickSide arms side for goal registration. Re-clicking the armed side
// disarms it and leaves that side in shot-registration mode instead.
func (c *Controller) ClickSide(side Side) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ended || c.state == StateAwaitingGoalType {
		return
	}

	if c.state == StateSideArmed && c.armedSide == side {
		c.state = StateIdle
		c.armedSide = ""
		c.shotSide = side
		c.view.SetSideArmed(side, false)
		return
	}

	c.disarmLocked()
	c.state = StateSideArmed
	c.armedSide = side
	c.shotSide = ""
	c.view.SetSideArmed(side, true)
}

// ClickPlayer dispatches a player-button click according to the current
// activation state.
func (c *Controller) ClickPlayer(playerID int, side Side) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ended {
		return
	}

	switch c.state {
	case StateAwaitingGoalType:
		// One pending context at a time; resolve or close the overlay
		// before the next registration.
		log.Debug().Int("player_id", playerID).Msg("player click ignored, goal type pending")

	case StateSwitchArmed:
		c.outgoing = playerID
		c.send(protocol.NewGetNonActivePlayers(playerID))

	case StateSideArmed:
		if side != c.armedSide {
			return
		}
		c.pending = &PendingGoalContext{
			PlayerID: playerID,
			ForTeam:  side == SideHome,
			Intended: protocol.CmdOutGoalReg,
		}
		c.state = StateAwaitingGoalType
		c.send(protocol.Cmd(protocol.CmdOutGetGoalTypes))

	default:
		if c.shotSide != "" && side == c.shotSide {
			c.send(protocol.NewShotReg(playerID, side == SideHome))
		}
	}
}

// ClickSwitch arms substitution mode from any state, discarding a pending
// goal context if one was open.
func (c *Controller) ClickSwitch() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ended {
		return
	}

	if c.pending != nil {
		c.pending = nil
		c.view.CloseGoalTypes()
	}
	c.disarmLocked()
	c.shotSide = ""
	c.state = StateSwitchArmed
}

// ChooseGoalType completes the pending registration with the picked type.
func (c *Controller) ChooseGoalType(goalType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		log.Warn().Str("goal_type", goalType).Msg("goal type picked with no pending registration")
		return
	}

	c.send(protocol.NewGoalReg(goalType, c.pending.PlayerID, c.pending.ForTeam))
	c.pending = nil
	c.view.CloseGoalTypes()
	c.disarmLocked()
}

// CloseGoalTypeOverlay discards the pending context without submitting.
func (c *Controller) CloseGoalTypeOverlay() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = nil
	c.view.CloseGoalTypes()
	if c.state == StateAwaitingGoalType {
		c.disarmLocked()
	}
}

// SelectReservePlayer submits the substitution for the previously clicked
// outgoing player.
func (c *Controller) SelectReservePlayer(newPlayerID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateSwitchArmed || c.outgoing == 0 {
		return
	}
	c.send(protocol.NewSubstituteReg(newPlayerID, c.outgoing))
}

// ClickStartPause toggles the match clock server-side.
func (c *Controller) ClickStartPause() {
	c.mu.Lock()
	ended := c.ended
	c.mu.Unlock()
	if ended {
		return
	}
	c.send(protocol.Cmd(protocol.CmdOutStartPause))
}

// ClickPartEnd asks the server to conclude the current period.
func (c *Controller) ClickPartEnd() {
	c.send(protocol.Cmd(protocol.CmdOutPartEnd))
}

// ClickTimeout registers a timeout.
func (c *Controller) ClickTimeout() {
	c.send(protocol.Cmd(protocol.CmdOutTimeout))
}

// LogEvent registers a free-form match event.
func (c *Controller) LogEvent(event string) {
	c.send(protocol.NewEventReg(event))
}

// disarmLocked forces Idle and clears the armed side. Shot mode and the
// switch outgoing player are left to the callers that own them.
func (c *Controller) disarmLocked() {
	if c.armedSide != "" {
		c.view.SetSideArmed(c.armedSide, false)
		c.armedSide = ""
	}
	c.state = StateIdle
}

func (c *Controller) send(v any) {
	if err := c.sender.Send(v); err != nil {
		// The socket already logged; the server re-pushes state on
		// reconnect, so a dropped command is not retried here.
		log.Debug().Err(err).Msg("command dropped")
	}
}

// Inbound handlers.

func (c *Controller) handleLastEvent(raw []byte) {
	var p protocol.LastEventPayload
	if !decode(raw, &p, protocol.CmdInLastEvent) {
		return
	}
	c.view.ShowEvents(p.Events)
}

func (c *Controller) handlePlayerShotChange(raw []byte) {
	var p protocol.PlayerShotChangePayload
	if !decode(raw, &p, protocol.CmdInPlayerShotChange) {
		return
	}
	c.view.SetPlayerShots(p.PlayerID, p.ShotsFor, p.ShotsAgainst)
}

func (c *Controller) handlePlayerGoalChange(raw []byte) {
	var p protocol.PlayerGoalChangePayload
	if !decode(raw, &p, protocol.CmdInPlayerGoalChange) {
		return
	}
	c.view.SetPlayerGoals(p.PlayerID, p.GoalsFor, p.GoalsAgainst)
}

func (c *Controller) handleGoalTypes(raw []byte) {
	var p protocol.GoalTypesPayload
	if !decode(raw, &p, protocol.CmdInGoalTypes) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		log.Warn().Msg("goal types received with no pending registration")
		return
	}
	c.view.ShowGoalTypes(p.GoalTypes)
}

// handleTimerData reconciles the local clock against the server's. The
// previous countdown is always destroyed first so its queued ticks become
// no-ops before the replacement renders.
func (c *Controller) handleTimerData(raw []byte) {
	var p protocol.TimerDataPayload
	if !decode(raw, &p, protocol.CmdInTimerData) {
		return
	}

	start, err := time.Parse(time.RFC3339, p.Time)
	if err != nil {
		log.Error().Err(err).Str("time", p.Time).Msg("bad timer_data start time")
		return
	}
	serverTime, err := time.Parse(time.RFC3339, p.ServerTime)
	if err != nil {
		log.Error().Err(err).Str("server_time", p.ServerTime).Msg("bad timer_data server time")
		return
	}
	var pauseTime *time.Time
	if p.Type == protocol.TimerPause && p.CalcTo != "" {
		t, err := time.Parse(time.RFC3339, p.CalcTo)
		if err != nil {
			log.Error().Err(err).Str("calc_to", p.CalcTo).Msg("bad timer_data pause time")
			return
		}
		pauseTime = &t
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.countdown != nil {
		c.countdown.Destroy()
	}
	c.countdown = timer.New(timer.Config{
		StartTime:     start,
		Length:        time.Duration(p.Length) * time.Second,
		PauseTime:     pauseTime,
		Offset:        time.Duration(p.PauseLength) * time.Second,
		ShowEndSignal: c.cfg.ShowEndSignal,
		ServerTime:    serverTime,
	}, c.display, c.clock)

	if p.Type == protocol.TimerPause {
		c.view.SetStartPauseLabel(LabelStart)
		return
	}
	c.countdown.Start(0)
	c.view.SetStartPauseLabel(LabelPause)
}

func (c *Controller) handlePause(raw []byte) {
	var p protocol.PausePayload
	if !decode(raw, &p, protocol.CmdInPause) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if p.Pause {
		if c.countdown != nil {
			c.countdown.Stop()
		}
		c.view.SetStartPauseLabel(LabelStart)
		return
	}
	if c.countdown != nil {
		c.countdown.Start(time.Duration(p.PauseTime) * time.Second)
	}
	c.view.SetStartPauseLabel(LabelPause)
}

// handleTeamGoalChange is the server's confirmation that a registration went
// through: update the score and force Idle, whatever was in flight.
func (c *Controller) handleTeamGoalChange(raw []byte) {
	var p protocol.TeamGoalChangePayload
	if !decode(raw, &p, protocol.CmdInTeamGoalChange) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.view.SetScore(p.GoalsFor, p.GoalsAgainst)
	if c.pending != nil {
		c.pending = nil
	}
	c.view.CloseGoalTypes()
	c.disarmLocked()
}

func (c *Controller) handleNonActivePlayers(raw []byte) {
	var p protocol.NonActivePlayersPayload
	if !decode(raw, &p, protocol.CmdInNonActivePlayers) {
		return
	}
	c.view.ShowReservePlayers(p.Players)
}

// handlePlayerChange swaps the confirmed substitution into the rendered
// lineup and stays in switch mode so further substitutions chain.
func (c *Controller) handlePlayerChange(raw []byte) {
	var p protocol.PlayerChangePayload
	if !decode(raw, &p, protocol.CmdInPlayerChange) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.view.SwapPlayer(p.PlayerOutID, p.PlayerInID, p.PlayerIn)
	c.outgoing = 0
	c.state = StateSwitchArmed
}

func (c *Controller) handlePartEnd(raw []byte) {
	var p protocol.PartEndPayload
	if !decode(raw, &p, protocol.CmdInPartEnd) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.countdown != nil {
		c.countdown.Destroy()
		c.countdown = nil
	}
	c.period = p.Part
	c.view.SetPeriod(p.Part)

	length := c.cfg.PeriodLength
	if p.PartLength > 0 {
		length = time.Duration(p.PartLength) * time.Second
	}
	c.display.SetRemaining(timer.Format(length))
	c.display.SetEndSignal(false)
	c.view.SetStartPauseLabel(LabelStart)
}

func (c *Controller) handleMatchEnd(raw []byte) {
	var p protocol.MatchEndPayload
	if !decode(raw, &p, protocol.CmdInMatchEnd) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.countdown != nil {
		c.countdown.Destroy()
		c.countdown = nil
	}
	c.ended = true
	c.view.SetStartPauseLabel(LabelMatchEnded)
	c.view.ShowMatchEnd(p.MatchID)
}

// handleError surfaces a server-side precondition failure. No local retry:
// the user re-issues the action once the match state allows it.
func (c *Controller) handleError(raw []byte) {
	var p protocol.ErrorPayload
	if !decode(raw, &p, protocol.CmdInError) {
		return
	}
	log.Warn().Str("error", p.Error).Msg("server rejected action")
	c.view.ShowModal(p.Error)
}

func decode(raw []byte, v any, cmd protocol.Command) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		log.Error().Err(err).Str("command", string(cmd)).Msg("bad payload, dropping")
		return false
	}
	return true
}
