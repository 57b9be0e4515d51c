// Package config loads the tournament's tunables (spec §6): an optional
// HCL file reshaped to a single-tournament surface, with kong CLI flags
// (internal/config.CLI) providing the same tunables and overriding the
// file when both are present.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/algopoker/internal/tournament"
)

// File is the root of the optional HCL configuration file.
type File struct {
	Server     ServerBlock     `hcl:"server,block"`
	Tournament TournamentBlock `hcl:"tournament,block"`
}

type ServerBlock struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

type TournamentBlock struct {
	MinPlayers           int           `hcl:"min_players,optional"`
	MaxPlayers           int           `hcl:"max_players,optional"`
	StartingStack        int           `hcl:"starting_stack,optional"`
	ActionTimeoutSeconds int           `hcl:"action_timeout_seconds,optional"`
	LobbyWaitSeconds     int           `hcl:"lobby_wait_seconds,optional"`
	BlindLevels          []BlindLevel  `hcl:"blind_level,block"`
}

// BlindLevel's label is a string, matching the teacher's own labeled blocks
// (internal/server/config.go's TableConfig.Name) — HCL block labels decode
// only into string fields; the hand-number threshold is parsed separately.
type BlindLevel struct {
	HandNumberLabel string `hcl:"hand_number,label"`
	SmallBlind      int    `hcl:"small_blind"`
	BigBlind        int    `hcl:"big_blind"`
}

// Config is the fully-resolved, defaulted tournament configuration the
// server runs with, after merging an optional HCL file with CLI flags.
type Config struct {
	Address              string
	Port                 int
	LogLevel             string
	MinPlayers           int
	MaxPlayers           int
	StartingStack        int
	ActionTimeoutSeconds int
	LobbyWaitSeconds     int
	BlindSchedule        []tournament.BlindLevel
}

// Default returns spec §6's documented defaults.
func Default() Config {
	return Config{
		Address:              "localhost",
		Port:                 8765,
		LogLevel:             "info",
		MinPlayers:           2,
		MaxPlayers:           9,
		StartingStack:        10_000,
		ActionTimeoutSeconds: 30,
		LobbyWaitSeconds:     5,
		BlindSchedule:        tournament.DefaultSchedule(),
	}
}

// LoadFile parses an HCL config file, returning defaults unchanged if the
// file does not exist (matching the teacher's LoadServerConfig idiom).
func LoadFile(filename string) (Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("config: parse %s: %s", filename, diags.Error())
	}

	var f File
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &f); diags.HasErrors() {
		return Config{}, fmt.Errorf("config: decode %s: %s", filename, diags.Error())
	}

	applyServerBlock(&cfg, f.Server)
	if err := applyTournamentBlock(&cfg, f.Tournament); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", filename, err)
	}

	return cfg, nil
}

func applyServerBlock(cfg *Config, s ServerBlock) {
	if s.Address != "" {
		cfg.Address = s.Address
	}
	if s.Port != 0 {
		cfg.Port = s.Port
	}
	if s.LogLevel != "" {
		cfg.LogLevel = s.LogLevel
	}
}

func applyTournamentBlock(cfg *Config, t TournamentBlock) error {
	if t.MinPlayers != 0 {
		cfg.MinPlayers = t.MinPlayers
	}
	if t.MaxPlayers != 0 {
		cfg.MaxPlayers = t.MaxPlayers
	}
	if t.StartingStack != 0 {
		cfg.StartingStack = t.StartingStack
	}
	if t.ActionTimeoutSeconds != 0 {
		cfg.ActionTimeoutSeconds = t.ActionTimeoutSeconds
	}
	if t.LobbyWaitSeconds != 0 {
		cfg.LobbyWaitSeconds = t.LobbyWaitSeconds
	}
	if len(t.BlindLevels) > 0 {
		schedule := make([]tournament.BlindLevel, len(t.BlindLevels))
		for i, lvl := range t.BlindLevels {
			handNumber, err := strconv.Atoi(lvl.HandNumberLabel)
			if err != nil {
				return fmt.Errorf("blind_level %q: %w", lvl.HandNumberLabel, err)
			}
			schedule[i] = tournament.BlindLevel{HandNumber: handNumber, SmallBlind: lvl.SmallBlind, BigBlind: lvl.BigBlind}
		}
		cfg.BlindSchedule = schedule
	}
	return nil
}

// Validate checks the tunables for the invariants spec §6 implies.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.MinPlayers < 2 {
		return fmt.Errorf("config: min_players must be at least 2")
	}
	if c.MaxPlayers < c.MinPlayers {
		return fmt.Errorf("config: max_players must be >= min_players")
	}
	if c.StartingStack <= 0 {
		return fmt.Errorf("config: starting_stack must be positive")
	}
	if len(c.BlindSchedule) == 0 {
		return fmt.Errorf("config: blind_schedule must have at least one level")
	}
	return nil
}

// CLI is the kong-parsed flag surface, following the teacher's
// cmd/server/main.go CLI struct idiom: flags override file values.
type CLI struct {
	ConfigFile           string `help:"Optional HCL configuration file." name:"config"`
	Address              string `help:"Listen host." default:""`
	Port                 int    `help:"Listen port." default:"0"`
	LogLevel             string `help:"Log level (debug|info|warn|error)." default:""`
	MinPlayers           int    `help:"Minimum players before the lobby grace timer arms." default:"0"`
	MaxPlayers           int    `help:"Maximum seats; reaching it starts immediately." default:"0"`
	StartingStack        int    `help:"Starting chip stack per player." default:"0"`
	ActionTimeoutSeconds int    `help:"Per-action timeout in seconds." default:"0"`
	LobbyWaitSeconds     int    `help:"Grace period after min_players is reached." default:"0"`
}

// Resolve merges file-or-default config with CLI overrides (non-zero CLI
// fields win) and validates the result.
func Resolve(cli CLI) (Config, error) {
	cfg, err := LoadFile(cli.ConfigFile)
	if err != nil {
		return Config{}, err
	}

	if cli.Address != "" {
		cfg.Address = cli.Address
	}
	if cli.Port != 0 {
		cfg.Port = cli.Port
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	if cli.MinPlayers != 0 {
		cfg.MinPlayers = cli.MinPlayers
	}
	if cli.MaxPlayers != 0 {
		cfg.MaxPlayers = cli.MaxPlayers
	}
	if cli.StartingStack != 0 {
		cfg.StartingStack = cli.StartingStack
	}
	if cli.ActionTimeoutSeconds != 0 {
		cfg.ActionTimeoutSeconds = cli.ActionTimeoutSeconds
	}
	if cli.LobbyWaitSeconds != 0 {
		cfg.LobbyWaitSeconds = cli.LobbyWaitSeconds
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
