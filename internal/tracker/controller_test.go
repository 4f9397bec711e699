package tracker

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/clubhub/matchtrack/internal/protocol"
)

type armedCall struct {
	side  Side
	armed bool
}

type spyView struct {
	scoreFor, scoreAgainst int
	armedCalls             []armedCall
	armed                  map[Side]bool
	shownGoalTypes         []string
	overlayOpen            bool
	label                  string
	period                 int
	events                 []protocol.MatchEvent
	reserves               []protocol.Player
	swaps                  []string
	modals                 []string
	matchEndID             int
}

func newSpyView() *spyView {
	return &spyView{armed: make(map[Side]bool)}
}

func (v *spyView) SetScore(gf, ga int)           { v.scoreFor, v.scoreAgainst = gf, ga }
func (v *spyView) SetPlayerGoals(id, gf, ga int) {}
func (v *spyView) SetPlayerShots(id, sf, sa int) {}
func (v *spyView) SetSideArmed(side Side, armed bool) {
	v.armedCalls = append(v.armedCalls, armedCall{side, armed})
	v.armed[side] = armed
}
func (v *spyView) ShowGoalTypes(types []string) {
	v.shownGoalTypes = types
	v.overlayOpen = true
}
func (v *spyView) CloseGoalTypes()              { v.overlayOpen = false }
func (v *spyView) SetStartPauseLabel(l string)  { v.label = l }
func (v *spyView) SetPeriod(part int)           { v.period = part }
func (v *spyView) ShowEvents(ev []protocol.MatchEvent)      { v.events = ev }
func (v *spyView) ShowReservePlayers(p []protocol.Player)   { v.reserves = p }
func (v *spyView) SwapPlayer(outID, inID int, name string) {
	v.swaps = append(v.swaps, fmt.Sprintf("%d->%d:%s", outID, inID, name))
}
func (v *spyView) ShowModal(text string) { v.modals = append(v.modals, text) }
func (v *spyView) ShowMatchEnd(id int)   { v.matchEndID = id }

type spySender struct {
	sent []any
	err  error
}

func (s *spySender) Send(v any) error {
	s.sent = append(s.sent, v)
	return s.err
}

func (s *spySender) commands() []protocol.Command {
	var cmds []protocol.Command
	for _, v := range s.sent {
		switch m := v.(type) {
		case protocol.Simple:
			cmds = append(cmds, m.Command)
		case protocol.GoalReg:
			cmds = append(cmds, m.Command)
		case protocol.ShotReg:
			cmds = append(cmds, m.Command)
		case protocol.GetNonActivePlayers:
			cmds = append(cmds, m.Command)
		case protocol.SubstituteReg:
			cmds = append(cmds, m.Command)
		case protocol.EventReg:
			cmds = append(cmds, m.Command)
		}
	}
	return cmds
}

type fakeDisplay struct {
	mu        sync.Mutex
	remaining []string
	signals   []bool
}

func (d *fakeDisplay) SetRemaining(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.remaining = append(d.remaining, text)
}

func (d *fakeDisplay) SetEndSignal(visible bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.signals = append(d.signals, visible)
}

func (d *fakeDisplay) last() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.remaining) == 0 {
		return ""
	}
	return d.remaining[len(d.remaining)-1]
}

func (d *fakeDisplay) writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.remaining)
}

type fixture struct {
	c      *Controller
	r      *protocol.Router
	view   *spyView
	sender *spySender
	disp   *fakeDisplay
	clock  *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		view:   newSpyView(),
		sender: &spySender{},
		disp:   &fakeDisplay{},
		clock:  clockwork.NewFakeClock(),
	}
	f.c = New(Config{PeriodLength: 30 * time.Minute, ShowEndSignal: true},
		f.sender, f.view, f.disp, f.clock)
	f.r = protocol.NewRouter()
	f.c.Register(f.r)
	return f
}

func (f *fixture) push(t *testing.T, frame string) {
	t.Helper()
	f.r.Dispatch([]byte(frame))
}

const baseTime = "2026-03-14T19:00:00Z"

func TestArmingIsMutuallyExclusive(t *testing.T) {
	f := newFixture(t)

	f.c.ClickSide(SideHome)
	s := f.c.Snapshot()
	if s.State != StateSideArmed || s.ArmedSide != SideHome {
		t.Fatalf("after arming home: %+v", s)
	}

	f.c.ClickSide(SideAway)
	s = f.c.Snapshot()
	if s.State != StateSideArmed || s.ArmedSide != SideAway {
		t.Fatalf("after arming away: %+v", s)
	}

	// Home must be disarmed before away is armed; at no point both.
	want := []armedCall{{SideHome, true}, {SideHome, false}, {SideAway, true}}
	if len(f.view.armedCalls) != len(want) {
		t.Fatalf("armed calls = %v, want %v", f.view.armedCalls, want)
	}
	for i, c := range want {
		if f.view.armedCalls[i] != c {
			t.Errorf("armed call %d = %v, want %v", i, f.view.armedCalls[i], c)
		}
	}
	if f.view.armed[SideHome] && f.view.armed[SideAway] {
		t.Error("both sides armed simultaneously")
	}
}

func TestReclickEntersShotRegistrationMode(t *testing.T) {
	f := newFixture(t)

	f.c.ClickSide(SideHome)
	f.c.ClickSide(SideHome)

	s := f.c.Snapshot()
	if s.State != StateIdle || s.ShotSide != SideHome {
		t.Fatalf("after re-click: %+v", s)
	}

	f.c.ClickPlayer(7, SideHome)

	if len(f.sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(f.sender.sent))
	}
	shot, ok := f.sender.sent[0].(protocol.ShotReg)
	if !ok {
		t.Fatalf("sent %T, want ShotReg", f.sender.sent[0])
	}
	if shot.PlayerID != 7 || !shot.ForTeam {
		t.Errorf("shot_reg = %+v", shot)
	}

	// Arming again leaves shot mode.
	f.c.ClickSide(SideHome)
	if s := f.c.Snapshot(); s.ShotSide != "" {
		t.Errorf("shot mode survived re-arming: %+v", s)
	}
}

func TestGoalRegistrationFlow(t *testing.T) {
	f := newFixture(t)

	f.c.ClickSide(SideAway)
	f.c.ClickPlayer(12, SideAway)

	s := f.c.Snapshot()
	if s.State != StateAwaitingGoalType || !s.HasPending || s.PendingPlayerID != 12 {
		t.Fatalf("after player click: %+v", s)
	}
	if cmds := f.sender.commands(); len(cmds) != 1 || cmds[0] != protocol.CmdOutGetGoalTypes {
		t.Fatalf("commands = %v, want [get_goal_types]", cmds)
	}

	// A second click while the goal type is pending is ignored.
	f.c.ClickPlayer(3, SideAway)
	s = f.c.Snapshot()
	if s.PendingPlayerID != 12 {
		t.Fatalf("pending context replaced by second click: %+v", s)
	}
	if len(f.sender.sent) != 1 {
		t.Fatalf("second click sent a message: %v", f.sender.commands())
	}

	f.push(t, `{"command":"goal_types","goal_types":["field","penalty","counter"]}`)
	if !f.view.overlayOpen || len(f.view.shownGoalTypes) != 3 {
		t.Fatal("goal type overlay not shown")
	}

	f.c.ChooseGoalType("penalty")

	goal, ok := f.sender.sent[len(f.sender.sent)-1].(protocol.GoalReg)
	if !ok {
		t.Fatalf("last sent %T, want GoalReg", f.sender.sent[len(f.sender.sent)-1])
	}
	if goal.GoalType != "penalty" || goal.PlayerID != 12 || goal.ForTeam {
		t.Errorf("goal_reg = %+v", goal)
	}
	s = f.c.Snapshot()
	if s.State != StateIdle || s.HasPending || f.view.overlayOpen {
		t.Errorf("after choosing type: %+v overlay=%v", s, f.view.overlayOpen)
	}
}

func TestClosingOverlayDiscardsWithoutSubmitting(t *testing.T) {
	f := newFixture(t)

	f.c.ClickSide(SideHome)
	f.c.ClickPlayer(5, SideHome)
	sentBefore := len(f.sender.sent)

	f.c.CloseGoalTypeOverlay()

	s := f.c.Snapshot()
	if s.HasPending || s.State != StateIdle {
		t.Errorf("after close: %+v", s)
	}
	if len(f.sender.sent) != sentBefore {
		t.Errorf("closing the overlay sent %v", f.sender.commands())
	}
}

func TestTeamGoalChangeForcesIdle(t *testing.T) {
	f := newFixture(t)

	f.c.ClickSide(SideHome)
	f.c.ClickPlayer(5, SideHome)
	f.push(t, `{"command":"goal_types","goal_types":["field"]}`)

	f.push(t, `{"command":"team_goal_change","goals_for":3,"goals_against":1}`)

	if f.view.scoreFor != 3 || f.view.scoreAgainst != 1 {
		t.Errorf("score = %d:%d", f.view.scoreFor, f.view.scoreAgainst)
	}
	if f.view.overlayOpen {
		t.Error("overlay still open")
	}
	s := f.c.Snapshot()
	if s.State != StateIdle || s.HasPending || s.ArmedSide != "" {
		t.Errorf("after team_goal_change: %+v", s)
	}
}

func TestSubstitutionFlow(t *testing.T) {
	f := newFixture(t)

	f.c.ClickSwitch()
	if s := f.c.Snapshot(); s.State != StateSwitchArmed {
		t.Fatalf("after switch click: %+v", s)
	}

	f.c.ClickPlayer(11, SideHome)
	req, ok := f.sender.sent[0].(protocol.GetNonActivePlayers)
	if !ok || req.PlayerID != 11 {
		t.Fatalf("sent %+v, want get_non_active_players for 11", f.sender.sent[0])
	}

	f.push(t, `{"command":"non_active_players","players":[{"id":4,"name":"R. Reserve"}]}`)
	if len(f.view.reserves) != 1 || f.view.reserves[0].ID != 4 {
		t.Fatal("reserves not rendered")
	}

	f.c.SelectReservePlayer(4)
	sub, ok := f.sender.sent[len(f.sender.sent)-1].(protocol.SubstituteReg)
	if !ok {
		t.Fatalf("last sent %T, want SubstituteReg", f.sender.sent[len(f.sender.sent)-1])
	}
	if sub.NewPlayerID != 4 || sub.OldPlayerID != 11 {
		t.Errorf("substitute_reg = %+v", sub)
	}

	// Confirmation swaps the slot and stays in switch mode for the next one.
	f.push(t, `{"command":"player_change","player_in_id":4,"player_out_id":11,"player_in":"R. Reserve"}`)
	if len(f.view.swaps) != 1 || f.view.swaps[0] != "11->4:R. Reserve" {
		t.Errorf("swaps = %v", f.view.swaps)
	}
	s := f.c.Snapshot()
	if s.State != StateSwitchArmed || s.OutgoingPlayerID != 0 {
		t.Errorf("after player_change: %+v", s)
	}
}

func TestSwitchDiscardsPendingGoalContext(t *testing.T) {
	f := newFixture(t)

	f.c.ClickSide(SideHome)
	f.c.ClickPlayer(5, SideHome)

	f.c.ClickSwitch()

	s := f.c.Snapshot()
	if s.State != StateSwitchArmed || s.HasPending {
		t.Errorf("after switch from pending: %+v", s)
	}
	if f.view.overlayOpen {
		t.Error("overlay still open after switch")
	}
}

func TestTimerDataStartsClock(t *testing.T) {
	f := newFixture(t)

	f.push(t, fmt.Sprintf(
		`{"command":"timer_data","type":"start","time":%q,"length":600,"pause_length":0,"server_time":%q}`,
		baseTime, baseTime))

	if got := f.disp.last(); got != "10:00" {
		t.Errorf("initial clock = %q, want 10:00", got)
	}
	if f.view.label != LabelPause {
		t.Errorf("label = %q, want %q", f.view.label, LabelPause)
	}
}

func TestTimerDataReplacesPreviousTimer(t *testing.T) {
	f := newFixture(t)

	f.push(t, fmt.Sprintf(
		`{"command":"timer_data","type":"start","time":%q,"length":600,"pause_length":0,"server_time":%q}`,
		baseTime, baseTime))

	// Correction arrives paused at 2 minutes in: old timer must be destroyed
	// before the replacement renders.
	f.push(t, fmt.Sprintf(
		`{"command":"timer_data","type":"pause","time":%q,"length":600,"pause_length":0,"calc_to":"2026-03-14T19:02:00Z","server_time":"2026-03-14T19:02:00Z"}`,
		baseTime))

	if got := f.disp.last(); got != "8:00" {
		t.Fatalf("clock after correction = %q, want 8:00", got)
	}
	if f.view.label != LabelStart {
		t.Errorf("label = %q, want %q", f.view.label, LabelStart)
	}

	// The old timer's ticks are no-ops now; the paused replacement does not
	// tick either, so the display must stay put.
	before := f.disp.writes()
	f.clock.Advance(5 * time.Second)
	if f.disp.writes() != before {
		t.Error("a stale timer wrote to the display after replacement")
	}
}

func TestPausePushStopsAndResumesWithCredit(t *testing.T) {
	f := newFixture(t)

	f.push(t, fmt.Sprintf(
		`{"command":"timer_data","type":"start","time":%q,"length":600,"pause_length":0,"server_time":%q}`,
		baseTime, baseTime))

	f.push(t, `{"command":"pause","pause":true}`)
	if f.view.label != LabelStart {
		t.Fatalf("label after pause = %q, want %q", f.view.label, LabelStart)
	}

	f.push(t, `{"command":"pause","pause":false,"pause_time":30}`)
	if f.view.label != LabelPause {
		t.Fatalf("label after resume = %q, want %q", f.view.label, LabelPause)
	}
	// 10:00 nominal plus 30s pause credit, no ticks elapsed.
	if got := f.disp.last(); got != "10:30" {
		t.Errorf("clock after resume = %q, want 10:30", got)
	}
}

func TestPartEndResetsClockAndPeriod(t *testing.T) {
	f := newFixture(t)

	f.push(t, fmt.Sprintf(
		`{"command":"timer_data","type":"start","time":%q,"length":600,"pause_length":0,"server_time":%q}`,
		baseTime, baseTime))

	f.push(t, `{"command":"part_end","part":2,"part_length":600}`)

	if f.view.period != 2 {
		t.Errorf("period = %d, want 2", f.view.period)
	}
	if got := f.disp.last(); got != "10:00" {
		t.Errorf("clock after part_end = %q, want 10:00", got)
	}
	if f.view.label != LabelStart {
		t.Errorf("label = %q, want %q", f.view.label, LabelStart)
	}
	if n := len(f.disp.signals); n == 0 || f.disp.signals[n-1] {
		t.Error("end-of-period affordance not hidden")
	}

	// Destroyed timer: no more writes on tick.
	before := f.disp.writes()
	f.clock.Advance(3 * time.Second)
	if f.disp.writes() != before {
		t.Error("timer survived part_end")
	}
}

func TestMatchEndDisablesInteraction(t *testing.T) {
	f := newFixture(t)

	f.push(t, `{"command":"match_end","match_id":991}`)

	if f.view.matchEndID != 991 {
		t.Errorf("match end modal id = %d, want 991", f.view.matchEndID)
	}
	if f.view.label != LabelMatchEnded {
		t.Errorf("label = %q, want %q", f.view.label, LabelMatchEnded)
	}

	f.c.ClickStartPause()
	f.c.ClickSide(SideHome)
	if len(f.sender.sent) != 0 {
		t.Errorf("interaction after match end sent %v", f.sender.commands())
	}
	if s := f.c.Snapshot(); s.State != StateIdle {
		t.Errorf("state after match end click: %+v", s)
	}
}

func TestServerErrorShowsBlockingModal(t *testing.T) {
	f := newFixture(t)

	f.push(t, `{"command":"error","error":"match is paused"}`)

	if len(f.view.modals) != 1 || f.view.modals[0] != "match is paused" {
		t.Errorf("modals = %v", f.view.modals)
	}
	// No retry is issued.
	if len(f.sender.sent) != 0 {
		t.Errorf("error push triggered sends: %v", f.sender.commands())
	}
}

func TestRequestInitialState(t *testing.T) {
	f := newFixture(t)

	f.c.RequestInitialState()

	cmds := f.sender.commands()
	if len(cmds) != 2 || cmds[0] != protocol.CmdOutGetTime || cmds[1] != protocol.CmdOutLastEvent {
		t.Errorf("initial commands = %v, want [get_time last_event]", cmds)
	}
}

func TestLastEventRendersLog(t *testing.T) {
	f := newFixture(t)

	f.push(t, `{"command":"last_event","events":[{"id":1,"text":"Goal 1-0","minute":12}]}`)

	if len(f.view.events) != 1 || f.view.events[0].Text != "Goal 1-0" {
		t.Errorf("events = %+v", f.view.events)
	}
}
