package protocol

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// HandlerFunc receives the complete raw frame for its command. Handlers
// decode their own payload struct and must fail soft on bad fields.
type HandlerFunc func(raw []byte)

// Router demultiplexes inbound frames by command. It is stateless beyond its
// handler table and holds no connection reference.
type Router struct {
	handlers map[Command]HandlerFunc
}

func NewRouter() *Router {
	return &Router{handlers: make(map[Command]HandlerFunc)}
}

// Handle registers fn for cmd, replacing any previous registration.
func (r *Router) Handle(cmd Command, fn HandlerFunc) {
	r.handlers[cmd] = fn
}

// Dispatch parses the envelope and invokes the registered handler with the
// full frame. Unknown commands and malformed frames are logged and dropped,
// never propagated: a bad frame must not take down the socket loop.
func (r *Router) Dispatch(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Error().Err(err).Msg("dropping malformed frame")
		return
	}

	fn, ok := r.handlers[env.Command]
	if !ok {
		log.Warn().Str("command", string(env.Command)).Msg("no handler for command, dropping")
		return
	}

	fn(raw)
}
