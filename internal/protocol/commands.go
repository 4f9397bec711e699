package protocol

import (
	"encoding/json"
)

// Command identifies a message on the match-tracking channel. Every frame is
// a JSON object carrying a "command" field next to its command-specific
// fields.
type Command string

// Inbound commands pushed by the server.
const (
	CmdInLastEvent        Command = "last_event"
	CmdInPlayerGroups     Command = "playerGroups"
	CmdInPlayerShotChange Command = "player_shot_change"
	CmdInPlayerGoalChange Command = "player_goal_change"
	CmdInGoalTypes        Command = "goal_types"
	CmdInTimerData        Command = "timer_data"
	CmdInPause            Command = "pause"
	CmdInTeamGoalChange   Command = "team_goal_change"
	CmdInNonActivePlayers Command = "non_active_players"
	CmdInPlayerChange     Command = "player_change"
	CmdInPartEnd          Command = "part_end"
	CmdInMatchEnd         Command = "match_end"
	CmdInError            Command = "error"
)

// Outbound commands sent by the client.
const (
	CmdOutGetTime             Command = "get_time"
	CmdOutPlayerGroups        Command = "playerGroups"
	CmdOutLastEvent           Command = "last_event"
	CmdOutEvent               Command = "event"
	CmdOutPartEnd             Command = "part_end"
	CmdOutStartPause          Command = "start/pause"
	CmdOutGetGoalTypes        Command = "get_goal_types"
	CmdOutGoalReg             Command = "goal_reg"
	CmdOutShotReg             Command = "shot_reg"
	CmdOutGetNonActivePlayers Command = "get_non_active_players"
	CmdOutSubstituteReg       Command = "substitute_reg"
	CmdOutTimeout             Command = "timeout"
	CmdOutFollow              Command = "follow"
	CmdOutGetStats            Command = "get_stats"
	CmdOutSettingsUpdate      Command = "settings_update"
)

// Envelope is the minimal shape shared by every frame. The full raw frame is
// re-decoded into a command-specific payload by whoever handles it.
type Envelope struct {
	Command Command `json:"command"`
}

// TimerType is the subtype carried by a timer_data push.
type TimerType string

const (
	TimerActive TimerType = "active"
	TimerPause  TimerType = "pause"
	TimerStart  TimerType = "start"
)

// Inbound payloads. Field names match the wire protocol.

type MatchEvent struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Minute int    `json:"minute"`
}

type LastEventPayload struct {
	Events []MatchEvent `json:"events"`
}

type Player struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type PlayerGroup struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	StartingType string   `json:"starting_type"`
	PlayerMax    int      `json:"player_max"` // 0 means unconstrained
	Players      []Player `json:"players"`
}

type PlayerGroupsPayload struct {
	Groups []PlayerGroup `json:"groups"`
}

type PlayerShotChangePayload struct {
	PlayerID     int `json:"player_id"`
	ShotsFor     int `json:"shots_for"`
	ShotsAgainst int `json:"shots_against"`
}

type PlayerGoalChangePayload struct {
	PlayerID     int `json:"player_id"`
	GoalsFor     int `json:"goals_for"`
	GoalsAgainst int `json:"goals_against"`
}

type GoalTypesPayload struct {
	GoalTypes []string `json:"goal_types"`
}

// TimerDataPayload carries the server's authoritative view of the match
// clock. Instants are RFC 3339 strings; durations are seconds.
type TimerDataPayload struct {
	Type        TimerType `json:"type"`
	Time        string    `json:"time"`
	Length      int       `json:"length"`
	PauseLength int       `json:"pause_length"`
	CalcTo      string    `json:"calc_to,omitempty"`
	ServerTime  string    `json:"server_time"`
}

type PausePayload struct {
	Pause     bool `json:"pause"`
	PauseTime int  `json:"pause_time"`
}

type TeamGoalChangePayload struct {
	GoalsFor     int `json:"goals_for"`
	GoalsAgainst int `json:"goals_against"`
}

type NonActivePlayersPayload struct {
	Players []Player `json:"players"`
}

type PlayerChangePayload struct {
	PlayerInID  int    `json:"player_in_id"`
	PlayerOutID int    `json:"player_out_id"`
	PlayerIn    string `json:"player_in"`
}

type PartEndPayload struct {
	Part       int `json:"part"`
	PartLength int `json:"part_length"`
}

type MatchEndPayload struct {
	MatchID int `json:"match_id"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

// Outbound payloads. Each embeds its command tag so a single WriteJSON
// produces the full frame.

type Simple struct {
	Command Command `json:"command"`
}

// Cmd builds an outbound frame with no fields beyond the command tag.
func Cmd(c Command) Simple { return Simple{Command: c} }

type EventReg struct {
	Command Command `json:"command"`
	Event   string  `json:"event"`
}

func NewEventReg(event string) EventReg {
	return EventReg{Command: CmdOutEvent, Event: event}
}

type GoalReg struct {
	Command  Command `json:"command"`
	GoalType string  `json:"goal_type"`
	PlayerID int     `json:"player_id"`
	ForTeam  bool    `json:"for_team"`
}

func NewGoalReg(goalType string, playerID int, forTeam bool) GoalReg {
	return GoalReg{Command: CmdOutGoalReg, GoalType: goalType, PlayerID: playerID, ForTeam: forTeam}
}

type ShotReg struct {
	Command  Command `json:"command"`
	PlayerID int     `json:"player_id"`
	ForTeam  bool    `json:"for_team"`
}

func NewShotReg(playerID int, forTeam bool) ShotReg {
	return ShotReg{Command: CmdOutShotReg, PlayerID: playerID, ForTeam: forTeam}
}

type GetNonActivePlayers struct {
	Command  Command `json:"command"`
	PlayerID int     `json:"player_id"`
}

func NewGetNonActivePlayers(outgoingPlayerID int) GetNonActivePlayers {
	return GetNonActivePlayers{Command: CmdOutGetNonActivePlayers, PlayerID: outgoingPlayerID}
}

type SubstituteReg struct {
	Command     Command `json:"command"`
	NewPlayerID int     `json:"new_player_id"`
	OldPlayerID int     `json:"old_player_id"`
}

func NewSubstituteReg(newPlayerID, oldPlayerID int) SubstituteReg {
	return SubstituteReg{Command: CmdOutSubstituteReg, NewPlayerID: newPlayerID, OldPlayerID: oldPlayerID}
}

type Follow struct {
	Command  Command `json:"command"`
	UserID   int     `json:"user_id"`
	Followed bool    `json:"followed"`
}

func NewFollow(userID int, followed bool) Follow {
	return Follow{Command: CmdOutFollow, UserID: userID, Followed: followed}
}

type GetStats struct {
	Command  Command `json:"command"`
	UserID   int     `json:"user_id"`
	DataType string  `json:"data_type"`
}

func NewGetStats(userID int, dataType string) GetStats {
	return GetStats{Command: CmdOutGetStats, UserID: userID, DataType: dataType}
}

type SettingsUpdate struct {
	Command Command         `json:"command"`
	Data    json.RawMessage `json:"data"`
}

func NewSettingsUpdate(data json.RawMessage) SettingsUpdate {
	return SettingsUpdate{Command: CmdOutSettingsUpdate, Data: data}
}
