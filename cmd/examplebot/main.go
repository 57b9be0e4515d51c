// Command examplebot is a minimal agent client: it joins a tournament,
// answers each action_request by checking or calling, and logs the type of
// every other broadcast it receives at debug level. It exists
// as a reference client for spec §1's "example agents — not part of the
// core" and as a smoke-test fixture for the server.
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type cli struct {
	Server string `help:"Server websocket URL." default:"ws://localhost:8765/ws" env:"ALGOPOKER_SERVER"`
	Name   string `help:"Display name to join with."`
}

func main() {
	var c cli
	kong.Parse(&c, kong.Name("examplebot"), kong.Description("A minimal check/call poker agent"))

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if c.Name == "" {
		c.Name = fmt.Sprintf("bot-%d", rand.New(rand.NewSource(time.Now().UnixNano())).Intn(10000))
	}

	conn, _, err := websocket.DefaultDialer.Dial(c.Server, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("examplebot: dial failed")
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "join", "name": c.Name}); err != nil {
		logger.Fatal().Err(err).Msg("examplebot: join failed")
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			logger.Info().Err(err).Msg("examplebot: connection closed")
			return
		}

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			continue
		}

		switch envelope.Type {
		case "action_request":
			var req struct {
				ActorSeat int `json:"actor_seat"`
				GameState struct {
					ActorSeat    *int `json:"actor_seat"`
					ValidActions []struct {
						Type      string `json:"type"`
						MinAmount *int   `json:"min_amount"`
					} `json:"valid_actions"`
				} `json:"game_state"`
			}
			if err := json.Unmarshal(raw, &req); err != nil {
				continue
			}
			if req.GameState.ActorSeat == nil {
				continue
			}

			action := chooseAction(req.GameState.ValidActions)
			if err := conn.WriteJSON(map[string]any{"type": "action", "action": action}); err != nil {
				logger.Error().Err(err).Msg("examplebot: send failed")
			}
		default:
			logger.Debug().Str("type", envelope.Type).Msg("examplebot: received")
		}
	}
}

// chooseAction always prefers check, then call, never raises or folds
// voluntarily — the simplest possible strategy.
func chooseAction(actions []struct {
	Type      string `json:"type"`
	MinAmount *int   `json:"min_amount"`
}) map[string]any {
	for _, a := range actions {
		if a.Type == "check" {
			return map[string]any{"type": "check"}
		}
	}
	for _, a := range actions {
		if a.Type == "call" {
			return map[string]any{"type": "call"}
		}
	}
	return map[string]any{"type": "fold"}
}
