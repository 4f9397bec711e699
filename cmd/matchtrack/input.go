package main

import (
	"bufio"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/clubhub/matchtrack/internal/protocol"
	"github.com/clubhub/matchtrack/internal/roster"
	"github.com/clubhub/matchtrack/internal/socket"
	"github.com/clubhub/matchtrack/internal/tracker"
)

// inputLoop maps terminal commands onto the same controller methods the web
// page's click handlers invoke. Returns when the input stream ends or the
// user quits.
func inputLoop(in io.Reader, ctrl *tracker.Controller, groups *roster.Manager, h *socket.Handle) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "home":
			ctrl.ClickSide(tracker.SideHome)
		case "away":
			ctrl.ClickSide(tracker.SideAway)
		case "switch":
			ctrl.ClickSwitch()
		case "player":
			id, side, ok := playerArgs(args)
			if !ok {
				log.Warn().Msg("usage: player <id> <home|away>")
				continue
			}
			ctrl.ClickPlayer(id, side)
		case "type":
			if len(args) != 1 {
				log.Warn().Msg("usage: type <goal-type>")
				continue
			}
			ctrl.ChooseGoalType(args[0])
		case "cancel":
			ctrl.CloseGoalTypeOverlay()
		case "reserve":
			if id, ok := intArg(args); ok {
				ctrl.SelectReservePlayer(id)
			}
		case "clock":
			ctrl.ClickStartPause()
		case "partend":
			ctrl.ClickPartEnd()
		case "timeout":
			ctrl.ClickTimeout()
		case "event":
			if len(args) > 0 {
				ctrl.LogEvent(strings.Join(args, " "))
			}
		case "groups":
			groups.Initialize()
		case "pick":
			if len(args) == 2 {
				gid, err1 := strconv.Atoi(args[0])
				pid, err2 := strconv.Atoi(args[1])
				if err1 == nil && err2 == nil {
					groups.SelectPlayer(gid, pid)
				}
			}
		case "unpick":
			if id, ok := intArg(args); ok {
				groups.DeselectPlayer(id)
			}
		case "move":
			if id, ok := intArg(args); ok {
				if err := groups.ApplyGroupChange(id); err != nil {
					log.Warn().Err(err).Msg("group change not applied")
				}
			}
		case "search":
			groups.SearchNow(strings.Join(args, " "))
		case "follow", "unfollow":
			if id, ok := intArg(args); ok {
				send(h, protocol.NewFollow(id, cmd == "follow"))
			}
		case "stats":
			if len(args) == 2 {
				if id, err := strconv.Atoi(args[0]); err == nil {
					send(h, protocol.NewGetStats(id, args[1]))
				}
			}
		case "settings":
			if len(args) > 0 {
				raw := json.RawMessage(strings.Join(args, " "))
				if json.Valid(raw) {
					send(h, protocol.NewSettingsUpdate(raw))
				} else {
					log.Warn().Msg("settings payload is not valid JSON")
				}
			}
		case "quit", "exit":
			return
		default:
			log.Warn().Str("input", cmd).Msg("unknown command")
		}
	}
}

func send(h *socket.Handle, v any) {
	if err := h.Send(v); err != nil {
		log.Warn().Err(err).Msg("command not sent")
	}
}

func playerArgs(args []string) (int, tracker.Side, bool) {
	if len(args) != 2 {
		return 0, "", false
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, "", false
	}
	switch args[1] {
	case "home":
		return id, tracker.SideHome, true
	case "away":
		return id, tracker.SideAway, true
	}
	return 0, "", false
}

func intArg(args []string) (int, bool) {
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.Atoi(args[0])
	return id, err == nil
}
