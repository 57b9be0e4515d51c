package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/coder/quartz"
	"github.com/lox/algopoker/internal/config"
	"github.com/lox/algopoker/internal/lobby"
	"github.com/lox/algopoker/internal/session"
	"github.com/lox/algopoker/internal/tournament"
	"github.com/lox/algopoker/internal/transport"
	"github.com/rs/zerolog"
)

func main() {
	var cli struct {
		config.CLI
		Debug    bool     `help:"Enable debug logging."`
		SpawnBot []string `name:"spawn-bot" help:"Command to launch a local bot client on startup; may be repeated. Env: ALGOPOKER_SERVER"`
	}
	ctx := kong.Parse(&cli,
		kong.Name("algopoker-server"),
		kong.Description("No-limit hold'em tournament server"),
		kong.UsageOnError(),
	)

	cfg, err := config.Resolve(cli.CLI)
	ctx.FatalIfErrorf(err)

	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		level = parsed
	}
	if cli.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()

	addr := fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
	clock := quartz.NewReal()

	srv := newServer(cfg, logger, clock)
	httpSrv := &http.Server{Addr: addr, Handler: srv}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("server: listening")
		serverErr <- httpSrv.ListenAndServe()
	}()

	var botsDone <-chan error
	if len(cli.SpawnBot) > 0 {
		botsDone = waitAll(spawnBots(logger, context.Background(), cli.SpawnBot, toWSURL(addr)))
	}

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server: listen failed")
		}
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("server: shutting down")
		if botsDone != nil {
			<-botsDone
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server: graceful shutdown failed")
		}
	}
}

// server exposes the one websocket endpoint new agents and spectators
// connect to.
type server struct {
	mux *http.ServeMux
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// lobbyHolder is the cross-request mutable state naming which lobby a
// newly accepted connection should join: swapped exactly once per
// tournament, the moment the current lobby starts (spec §5: roster/lobby
// flags never interleave with a running HandLoop).
type lobbyHolder struct {
	mu sync.Mutex
	l  *lobby.Lobby
}

func (h *lobbyHolder) set(l *lobby.Lobby) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.l = l
}

func (h *lobbyHolder) get() *lobby.Lobby {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.l
}

func newServer(cfg config.Config, logger zerolog.Logger, clock quartz.Clock) *server {
	mux := http.NewServeMux()
	s := &server{mux: mux}

	holder := &lobbyHolder{}

	// newRoom builds one tournament's lobby. When it starts, it replaces
	// itself in holder with a fresh lobby for the next tournament (so
	// connections accepted while a tournament is running have somewhere
	// to land) and kicks off the tournament in its own goroutine.
	var newRoom func() *lobby.Lobby
	newRoom = func() *lobby.Lobby {
		return lobby.New(lobby.Config{
			MinPlayers:       cfg.MinPlayers,
			MaxPlayers:       cfg.MaxPlayers,
			StartingStack:    cfg.StartingStack,
			LobbyWaitSeconds: cfg.LobbyWaitSeconds,
		}, logger, clock, func(players []*lobby.Player, spectators []*session.Session) {
			holder.set(newRoom())
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			mgr := tournament.New(tournament.Config{
				BlindSchedule:        cfg.BlindSchedule,
				ActionTimeoutSeconds: cfg.ActionTimeoutSeconds,
			}, logger, clock, rng, players, spectators)
			mgr.Run()
		})
	}
	holder.set(newRoom())

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := transport.Upgrade(w, r)
		if err != nil {
			logger.Debug().Err(err).Msg("server: upgrade failed")
			return
		}
		handleConnection(logger, conn, holder)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return s
}
