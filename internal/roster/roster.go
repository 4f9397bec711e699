package roster

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/clubhub/matchtrack/internal/protocol"
	"github.com/clubhub/matchtrack/internal/webapi"
)

var (
	// ErrNoSelection means ApplyGroupChange was called with nothing selected.
	ErrNoSelection = errors.New("roster: no players selected")
	// ErrCapacityExceeded means the destination group cannot take the
	// selection. Raised before any network call.
	ErrCapacityExceeded = errors.New("roster: group capacity exceeded")
)

// StartingType classifies a tactical group.
type StartingType string

const (
	StartingTypeAttack  StartingType = "attack"
	StartingTypeDefense StartingType = "defense"
	StartingTypeReserve StartingType = "reserve"
)

// Sender is the send capability of the match socket handle.
type Sender interface {
	Send(v any) error
}

// API is the HTTP collaborator surface the manager needs.
type API interface {
	SearchPlayers(teamID int, query string) ([]protocol.Player, error)
	UpdateDesignation(req webapi.DesignationRequest) error
}

// View renders the grouped roster and the add-players search results.
type View interface {
	RenderGroups(groups []protocol.PlayerGroup)
	// RenderSearchResults replaces the add-players list. checked carries
	// selections made earlier so players outside the current result page
	// stay checked.
	RenderSearchResults(players []protocol.Player, checked map[int]bool)
	// Notify surfaces a synchronous client-side validation failure.
	Notify(message string)
}

// Config holds manager configuration.
type Config struct {
	TeamID int
	// SearchDebounce is the quiet period before a typed query hits the
	// server. Defaults to 2 seconds. Enter bypasses it via SearchNow.
	SearchDebounce time.Duration
}

// Manager edits roster group membership: multi-select players from one
// group, move them to another, add players found via search. Local state is
// mutated only after the server confirms, so the grouped view never shows a
// move the server rejected.
type Manager struct {
	cfg    Config
	sender Sender
	api    API
	view   View
	clock  clockwork.Clock

	mu          sync.Mutex
	groups      []protocol.PlayerGroup
	selected    map[int]bool
	sourceGroup int // group the current selection was made in, 0 = none
	searchTimer clockwork.Timer
}

func New(cfg Config, sender Sender, api API, view View, clock clockwork.Clock) *Manager {
	if cfg.SearchDebounce <= 0 {
		cfg.SearchDebounce = 2 * time.Second
	}
	return &Manager{
		cfg:      cfg,
		sender:   sender,
		api:      api,
		view:     view,
		clock:    clock,
		selected: make(map[int]bool),
	}
}

// Register attaches the manager's inbound handlers to the router.
func (m *Manager) Register(r *protocol.Router) {
	r.Handle(protocol.CmdInPlayerGroups, m.handlePlayerGroups)
}

// Initialize requests the current roster groups from the server.
func (m *Manager) Initialize() {
	if err := m.sender.Send(protocol.Cmd(protocol.CmdOutPlayerGroups)); err != nil {
		log.Debug().Err(err).Msg("playerGroups request dropped")
	}
}

func (m *Manager) handlePlayerGroups(raw []byte) {
	var p protocol.PlayerGroupsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error().Err(err).Msg("bad playerGroups payload, dropping")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups = p.Groups
	m.view.RenderGroups(m.groups)
}

// Groups returns a copy of the current grouped roster.
func (m *Manager) Groups() []protocol.PlayerGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]protocol.PlayerGroup, len(m.groups))
	copy(out, m.groups)
	return out
}

// Selected returns a copy of the current selection.
func (m *Manager) Selected() map[int]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectedLocked()
}

func (m *Manager) selectedLocked() map[int]bool {
	out := make(map[int]bool, len(m.selected))
	for id := range m.selected {
		out[id] = true
	}
	return out
}

// SelectPlayer adds a player to the selection. All selected players must
// come from the same source group; a click in a different group while a
// selection is active is a no-op until the selection is cleared.
func (m *Manager) SelectPlayer(groupID, playerID int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.selected) > 0 && groupID != m.sourceGroup {
		log.Debug().
			Int("group_id", groupID).
			Int("source_group", m.sourceGroup).
			Msg("selection spans groups, ignoring")
		return
	}
	m.sourceGroup = groupID
	m.selected[playerID] = true
}

// DeselectPlayer removes a player from the selection.
func (m *Manager) DeselectPlayer(playerID int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.selected, playerID)
	if len(m.selected) == 0 {
		m.sourceGroup = 0
	}
}

// ApplyGroupChange moves the selection into the target group. Capacity is
// validated locally first; on violation the user is notified synchronously
// and no network call is made. On server confirmation the move is applied
// atomically to the local arrays and the view re-renders.
func (m *Manager) ApplyGroupChange(targetGroupID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.selected) == 0 {
		return ErrNoSelection
	}

	if target := m.findGroupLocked(targetGroupID); target != nil && target.PlayerMax > 0 {
		if len(target.Players)+len(m.selected) > target.PlayerMax {
			log.Warn().
				Int("group_id", targetGroupID).
				Int("occupancy", len(target.Players)).
				Int("selection", len(m.selected)).
				Int("player_max", target.PlayerMax).
				Msg("group change rejected, capacity exceeded")
			m.view.Notify("Not enough room in the selected group")
			return ErrCapacityExceeded
		}
	}

	ids := make([]int, 0, len(m.selected))
	for id := range m.selected {
		ids = append(ids, id)
	}

	if err := m.api.UpdateDesignation(webapi.DesignationRequest{PlayerIDs: ids, GroupID: targetGroupID}); err != nil {
		log.Error().Err(err).Int("group_id", targetGroupID).Msg("designation update failed")
		m.view.Notify("Saving the group change failed")
		return err
	}

	m.moveSelectionLocked(targetGroupID)
	m.selected = make(map[int]bool)
	m.sourceGroup = 0
	m.view.RenderGroups(m.groups)
	return nil
}

// moveSelectionLocked removes the selected players from their source groups
// and inserts them into the destination, creating it locally if absent.
func (m *Manager) moveSelectionLocked(targetGroupID int) {
	var moved []protocol.Player
	for gi := range m.groups {
		kept := m.groups[gi].Players[:0]
		for _, p := range m.groups[gi].Players {
			if m.selected[p.ID] {
				moved = append(moved, p)
				continue
			}
			kept = append(kept, p)
		}
		m.groups[gi].Players = kept
	}

	target := m.findGroupLocked(targetGroupID)
	if target == nil {
		m.groups = append(m.groups, protocol.PlayerGroup{ID: targetGroupID})
		target = &m.groups[len(m.groups)-1]
	}
	target.Players = append(target.Players, moved...)
}

func (m *Manager) findGroupLocked(groupID int) *protocol.PlayerGroup {
	for i := range m.groups {
		if m.groups[i].ID == groupID {
			return &m.groups[i]
		}
	}
	return nil
}

// Search schedules a debounced server-backed player search. Each keystroke
// resets the quiet period.
func (m *Manager) Search(query string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.searchTimer != nil {
		m.searchTimer.Stop()
	}
	m.searchTimer = m.clock.AfterFunc(m.cfg.SearchDebounce, func() {
		m.runSearch(query)
	})
}

// SearchNow runs the search immediately (Enter key), cancelling any pending
// debounce.
func (m *Manager) SearchNow(query string) {
	m.mu.Lock()
	if m.searchTimer != nil {
		m.searchTimer.Stop()
		m.searchTimer = nil
	}
	m.mu.Unlock()

	m.runSearch(query)
}

func (m *Manager) runSearch(query string) {
	players, err := m.api.SearchPlayers(m.cfg.TeamID, query)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("player search failed")
		return
	}

	m.mu.Lock()
	checked := m.selectedLocked()
	m.mu.Unlock()

	m.view.RenderSearchResults(players, checked)
}
