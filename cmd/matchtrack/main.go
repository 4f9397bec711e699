package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/clubhub/matchtrack/internal/config"
	"github.com/clubhub/matchtrack/internal/protocol"
	"github.com/clubhub/matchtrack/internal/roster"
	"github.com/clubhub/matchtrack/internal/socket"
	"github.com/clubhub/matchtrack/internal/tracker"
	"github.com/clubhub/matchtrack/internal/webapi"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to YAML config file")
	socketURL := pflag.String("socket-url", "", "match-tracking websocket URL (overrides config)")
	logLevel := pflag.String("log-level", "", "log level (overrides config)")
	pflag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *socketURL != "" {
		cfg.SocketURL = *socketURL
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Str("log_level", cfg.LogLevel).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	if cfg.SocketURL == "" {
		log.Fatal().Msg("SOCKET_URL is required")
	}

	clock := clockwork.NewRealClock()
	view := newTermView(os.Stdout)
	router := protocol.NewRouter()
	api := webapi.NewClient(cfg.HTTPBaseURL, cfg.CSRFToken)

	// The controller sends through the handle and the handle's OnOpen asks
	// the controller to re-sync, so the handle is built first and the
	// controller attached before Run dials.
	var ctrl *tracker.Controller
	h := socket.New(socket.Config{
		URL:               cfg.SocketURL,
		ReconnectDelay:    cfg.ReconnectDelay(),
		RetryOnCleanClose: cfg.RetryOnCleanClose,
		Clock:             clock,
	}, socket.Callbacks{
		OnOpen: func(*socket.Handle) {
			ctrl.RequestInitialState()
		},
		OnMessage: router.Dispatch,
	})

	ctrl = tracker.New(tracker.Config{
		PeriodLength:  cfg.PeriodLength(),
		ShowEndSignal: cfg.ShowEndSignal,
	}, h, view, view, clock)
	ctrl.Register(router)

	groups := roster.New(roster.Config{
		TeamID:         cfg.TeamID,
		SearchDebounce: cfg.SearchDebounce(),
	}, h, api, view, clock)
	groups.Register(router)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info().Msg("shutting down")
		h.Close()
		cancel()
	}()

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	log.Info().
		Str("url", cfg.SocketURL).
		Int("match_id", cfg.MatchID).
		Msg("match tracker started")

	inputLoop(os.Stdin, ctrl, groups, h)

	h.Close()
	cancel()
	<-done
}
