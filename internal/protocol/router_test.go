package protocol

import (
	"encoding/json"
	"testing"
)

func TestRouterDispatch(t *testing.T) {
	r := NewRouter()

	var got TeamGoalChangePayload
	calls := 0
	r.Handle(CmdInTeamGoalChange, func(raw []byte) {
		calls++
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
	})

	r.Dispatch([]byte(`{"command":"team_goal_change","goals_for":2,"goals_against":1}`))

	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
	if got.GoalsFor != 2 || got.GoalsAgainst != 1 {
		t.Errorf("payload = %+v, want goals_for=2 goals_against=1", got)
	}
}

func TestRouterUnknownCommandIsDropped(t *testing.T) {
	r := NewRouter()
	called := false
	r.Handle(CmdInPause, func([]byte) { called = true })

	// Must not panic, must not hit unrelated handlers.
	r.Dispatch([]byte(`{"command":"made_up_command","x":1}`))

	if called {
		t.Error("unrelated handler invoked for unknown command")
	}
}

func TestRouterMalformedFrameIsDropped(t *testing.T) {
	r := NewRouter()
	called := false
	r.Handle(CmdInPause, func([]byte) { called = true })

	r.Dispatch([]byte(`{"command": "pause", truncated`))

	if called {
		t.Error("handler invoked for malformed frame")
	}
}

func TestRouterLastRegistrationWins(t *testing.T) {
	r := NewRouter()
	var order []int
	r.Handle(CmdInPartEnd, func([]byte) { order = append(order, 1) })
	r.Handle(CmdInPartEnd, func([]byte) { order = append(order, 2) })

	r.Dispatch([]byte(`{"command":"part_end","part":2,"part_length":1200}`))

	if len(order) != 1 || order[0] != 2 {
		t.Errorf("dispatch order = %v, want [2]", order)
	}
}

func TestOutboundFramesCarryCommandTag(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want string
	}{
		{"simple", Cmd(CmdOutGetTime), `{"command":"get_time"}`},
		{"goal_reg", NewGoalReg("counter", 7, true), `{"command":"goal_reg","goal_type":"counter","player_id":7,"for_team":true}`},
		{"shot_reg", NewShotReg(9, false), `{"command":"shot_reg","player_id":9,"for_team":false}`},
		{"substitute_reg", NewSubstituteReg(4, 11), `{"command":"substitute_reg","new_player_id":4,"old_player_id":11}`},
		{"follow", NewFollow(31, true), `{"command":"follow","user_id":31,"followed":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.v)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("frame = %s, want %s", data, tt.want)
			}
		})
	}
}
