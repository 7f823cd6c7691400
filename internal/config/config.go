// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jason-s-yu/assassin/internal/game"
	"github.com/jason-s-yu/assassin/internal/models"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Server
	Port         int           `env:"PORT" envDefault:"8080"`
	Store        string        `env:"STORE" envDefault:"postgres"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"1m"`

	// Database
	DatabaseURL   string `env:"DATABASE_URL"`
	PGHost        string `env:"PGHOST" envDefault:"localhost"`
	PGPort        int    `env:"PGPORT" envDefault:"5432"`
	PGUser        string `env:"PGUSER" envDefault:"assassin"`
	PGPassword    string `env:"PGPASSWORD" envDefault:"assassin"`
	PGDatabase    string `env:"PGDATABASE" envDefault:"assassin"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`

	// Redis
	RedisAddr  string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB    int    `env:"REDIS_DB" envDefault:"0"`
	EventQueue string `env:"EVENT_QUEUE" envDefault:"assassin_events"`

	// Historian
	HistorianBatchSize int           `env:"HISTORIAN_BATCH_SIZE" envDefault:"20"`
	HistorianFlush     time.Duration `env:"HISTORIAN_FLUSH" envDefault:"500ms"`

	// Tokens
	TokenExpireTime string `env:"TOKEN_EXPIRE_TIME" envDefault:"72h"`
	PrivateKeyPath  string `env:"JWT_PRIVATE_KEY_PATH"`
	PublicKeyPath   string `env:"JWT_PUBLIC_KEY_PATH"`

	// Game rules
	RegistrationApproval bool          `env:"REGISTRATION_APPROVAL" envDefault:"false"`
	RegistrationTimeout  time.Duration `env:"REGISTRATION_TIMEOUT" envDefault:"24h"`
	JoinRequestTimeout   time.Duration `env:"JOIN_REQUEST_TIMEOUT" envDefault:"24h"`
	MaxTeamSize          int           `env:"MAX_TEAM_SIZE" envDefault:"0"`
	MinTeams             int           `env:"MIN_TEAMS" envDefault:"2"`
	AdjudicationMode     string        `env:"ADJUDICATION_MODE" envDefault:"vote"`
	VotingWindow         time.Duration `env:"VOTING_WINDOW" envDefault:"10m"`
	ReportTimeout        time.Duration `env:"REPORT_TIMEOUT" envDefault:"0s"`
	GameEndDate          string        `env:"GAME_END_DATE"`
	RevivePolicy         string        `env:"REVIVE_POLICY" envDefault:"keep_inactive"`

	// Channels
	ChannelStatus         string `env:"CHANNEL_STATUS"`
	ChannelAssassinations string `env:"CHANNEL_ASSASSINATIONS"`
	ChannelDisputes       string `env:"CHANNEL_DISPUTES"`
	ChannelManagers       string `env:"CHANNEL_MANAGERS"`
	ChannelAnnouncements  string `env:"CHANNEL_ANNOUNCEMENTS"`
}

// Load parses environment variables into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	switch models.AdjudicationMode(c.AdjudicationMode) {
	case models.AdjudicateVote, models.AdjudicateManager:
	default:
		return fmt.Errorf("ADJUDICATION_MODE must be vote or manager, got %q", c.AdjudicationMode)
	}
	switch game.RevivePolicy(c.RevivePolicy) {
	case game.ReviveKeepInactive, game.ReviveReactivate:
	default:
		return fmt.Errorf("REVIVE_POLICY must be keep_inactive or reactivate, got %q", c.RevivePolicy)
	}
	if c.MinTeams < 2 {
		return fmt.Errorf("MIN_TEAMS must be at least 2, got %d", c.MinTeams)
	}
	if c.MaxTeamSize < 0 {
		return fmt.Errorf("MAX_TEAM_SIZE must not be negative, got %d", c.MaxTeamSize)
	}
	if c.AdjudicationMode == string(models.AdjudicateVote) && c.VotingWindow <= 0 {
		return fmt.Errorf("VOTING_WINDOW must be positive in vote mode")
	}
	if _, err := c.endDate(); err != nil {
		return err
	}
	return nil
}

func (c *Config) endDate() (*time.Time, error) {
	if c.GameEndDate == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, c.GameEndDate)
	if err != nil {
		return nil, fmt.Errorf("GAME_END_DATE must be RFC3339: %w", err)
	}
	return &t, nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// Game converts the rule settings into an engine config. Call Validate first.
func (c *Config) Game() game.Config {
	end, _ := c.endDate()
	return game.Config{
		RegistrationApproval: c.RegistrationApproval,
		RegistrationTimeout:  c.RegistrationTimeout,
		JoinRequestTimeout:   c.JoinRequestTimeout,
		MaxTeamSize:          c.MaxTeamSize,
		MinTeams:             c.MinTeams,
		Adjudication:         models.AdjudicationMode(c.AdjudicationMode),
		VotingWindow:         c.VotingWindow,
		ReportTimeout:        c.ReportTimeout,
		GameEndDate:          end,
		RevivePolicy:         game.RevivePolicy(c.RevivePolicy),
		Channels: game.Channels{
			Status:         c.ChannelStatus,
			Assassinations: c.ChannelAssassinations,
			Disputes:       c.ChannelDisputes,
			Managers:       c.ChannelManagers,
			Announcements:  c.ChannelAnnouncements,
		},
	}
}
