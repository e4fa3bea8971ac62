package skyroulette

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/ThomasByr/skyroulette/internal/domain/roulette"
	"github.com/ThomasByr/skyroulette/internal/gateways/database"
	"github.com/ThomasByr/skyroulette/internal/gateways/spaces"
)

const (
	HistoryBackendFile     = "file"
	HistoryBackendPostgres = "postgres"
)

// Duration reads "1h30m" style strings from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	Log      LogConfig         `toml:"log"`
	Bot      BotConfig         `toml:"bot"`
	Roulette RouletteConfig    `toml:"roulette"`
	History  HistoryConfig     `toml:"history"`
	DB       database.DBConfig `toml:"db"`
	Web      WebConfig         `toml:"web"`
	Spaces   spaces.Config     `toml:"spaces"`
	Jobs     JobsConfig        `toml:"jobs"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Prefix string `toml:"prefix"`
	Color  bool   `toml:"color"`
}

type BotConfig struct {
	Token             string         `toml:"token"`
	GuildID           snowflake.ID   `toml:"guild_id"`
	AnnounceChannelID snowflake.ID   `toml:"announce_channel_id"`
	DevGuilds         []snowflake.ID `toml:"dev_guilds"`
	SyncCommands      bool           `toml:"sync_commands"`
}

type RouletteConfig struct {
	Timezone          string   `toml:"timezone"`
	HappyHourStart    int      `toml:"happy_hour_start"`
	HappyHourEnd      int      `toml:"happy_hour_end"`
	Restriction       Duration `toml:"restriction"`
	Cooldown          Duration `toml:"cooldown"`
	HappyHourCooldown Duration `toml:"happy_hour_cooldown"`
	Reason            string   `toml:"reason"`
	Announcements     []string `toml:"announcements"`
	SideEffectRetries int      `toml:"side_effect_retries"`
	SideEffectTimeout Duration `toml:"side_effect_timeout"`
}

type HistoryConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

type WebConfig struct {
	Enabled        bool   `toml:"enabled"`
	Addr           string `toml:"addr"`
	AllowedOrigin  string `toml:"allowed_origin"`
	StaticDir      string `toml:"static_dir"`
	SpinsPerMinute int    `toml:"spins_per_minute"`
}

type JobsConfig struct {
	IdentityBackfill string `toml:"identity_backfill"`
	Backup           string `toml:"backup"`
}

// envOverrides are the variables a container deployment sets instead of
// editing config.toml.
type envOverrides struct {
	Token             string `envconfig:"DISCORD_TOKEN"`
	GuildID           string `envconfig:"GUILD_ID"`
	AnnounceChannelID string `envconfig:"ANNOUNCE_CHANNEL_ID"`
	AllowedOrigin     string `envconfig:"ALLOWED_ORIGIN"`
	HappyHourStart    *int   `envconfig:"HAPPY_HOUR_START"`
	HappyHourEnd      *int   `envconfig:"HAPPY_HOUR_END"`
	HistoryBackend    string `envconfig:"HISTORY_BACKEND"`
	HistoryPath       string `envconfig:"HISTORY_PATH"`
	DBPassword        string `envconfig:"DB_PASSWORD"`
}

func DefaultConfig() Config {
	cooldown := roulette.DefaultCooldownConfig()
	scheduler := roulette.DefaultSchedulerConfig()
	dispatcher := roulette.DefaultDispatcherConfig()

	return Config{
		Log: LogConfig{Level: "info", Prefix: "Skyroulette", Color: true},
		Bot: BotConfig{SyncCommands: true},
		Roulette: RouletteConfig{
			Timezone:          "Europe/Paris",
			HappyHourStart:    cooldown.HappyHourStart,
			HappyHourEnd:      cooldown.HappyHourEnd,
			Restriction:       Duration{scheduler.Restriction},
			Cooldown:          Duration{cooldown.Standard},
			HappyHourCooldown: Duration{cooldown.HappyHourCooldown},
			Reason:            scheduler.Reason,
			SideEffectRetries: dispatcher.MaxAttempts,
			SideEffectTimeout: Duration{dispatcher.Timeout},
		},
		History: HistoryConfig{Backend: HistoryBackendFile, Path: "data/history.jsonl"},
		DB:      database.DBConfig{Host: "localhost", Port: 5432, User: "skyroulette", Database: "skyroulette", PoolSize: 5},
		Web:     WebConfig{Enabled: true, Addr: ":8000", SpinsPerMinute: 30},
		Jobs:    JobsConfig{IdentityBackfill: "@every 10m", Backup: "@every 6h"},
	}
}

// LoadConfig reads path over the defaults, applies environment overrides
// and validates the result. A missing file is fine when the environment
// supplies everything.
func LoadConfig(path string) (*Config, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadConfig is LoadConfig without validation, for tools that only need the
// storage sections.
func ReadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to open config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	if env.Token != "" {
		c.Bot.Token = env.Token
	}
	if env.GuildID != "" {
		id, err := snowflake.Parse(env.GuildID)
		if err != nil {
			return fmt.Errorf("invalid GUILD_ID: %w", err)
		}
		c.Bot.GuildID = id
	}
	if env.AnnounceChannelID != "" {
		id, err := snowflake.Parse(env.AnnounceChannelID)
		if err != nil {
			return fmt.Errorf("invalid ANNOUNCE_CHANNEL_ID: %w", err)
		}
		c.Bot.AnnounceChannelID = id
	}
	if env.AllowedOrigin != "" {
		c.Web.AllowedOrigin = env.AllowedOrigin
	}
	if env.HappyHourStart != nil {
		c.Roulette.HappyHourStart = *env.HappyHourStart
	}
	if env.HappyHourEnd != nil {
		c.Roulette.HappyHourEnd = *env.HappyHourEnd
	}
	if env.HistoryBackend != "" {
		c.History.Backend = env.HistoryBackend
	}
	if env.HistoryPath != "" {
		c.History.Path = env.HistoryPath
	}
	if env.DBPassword != "" {
		c.DB.Password = env.DBPassword
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Bot.Token == "" {
		errs = append(errs, errors.New("bot token is required"))
	}
	if c.Bot.GuildID == 0 {
		errs = append(errs, errors.New("guild id is required"))
	}
	if _, err := time.LoadLocation(c.Roulette.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("unknown timezone %q: %w", c.Roulette.Timezone, err))
	}
	for name, hour := range map[string]int{
		"happy_hour_start": c.Roulette.HappyHourStart,
		"happy_hour_end":   c.Roulette.HappyHourEnd,
	} {
		if hour < 0 || hour > 23 {
			errs = append(errs, fmt.Errorf("%s must be within 0..23, got %d", name, hour))
		}
	}
	for name, d := range map[string]Duration{
		"restriction":         c.Roulette.Restriction,
		"cooldown":            c.Roulette.Cooldown,
		"happy_hour_cooldown": c.Roulette.HappyHourCooldown,
	} {
		if d.Duration <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	switch c.History.Backend {
	case HistoryBackendFile:
		if c.History.Path == "" {
			errs = append(errs, errors.New("history path is required for the file backend"))
		}
	case HistoryBackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown history backend %q", c.History.Backend))
	}

	return errors.Join(errs...)
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Roulette.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) CooldownConfig() roulette.CooldownConfig {
	return roulette.CooldownConfig{
		HappyHourStart:    c.Roulette.HappyHourStart,
		HappyHourEnd:      c.Roulette.HappyHourEnd,
		Standard:          c.Roulette.Cooldown.Duration,
		HappyHourCooldown: c.Roulette.HappyHourCooldown.Duration,
		Location:          c.Location(),
	}
}

func (c *Config) SchedulerConfig() roulette.SchedulerConfig {
	cfg := roulette.DefaultSchedulerConfig()
	cfg.Restriction = c.Roulette.Restriction.Duration
	if c.Roulette.Reason != "" {
		cfg.Reason = c.Roulette.Reason
	}
	if len(c.Roulette.Announcements) > 0 {
		cfg.Announcements = c.Roulette.Announcements
	}
	return cfg
}

func (c *Config) DispatcherConfig() roulette.DispatcherConfig {
	cfg := roulette.DefaultDispatcherConfig()
	if c.Roulette.SideEffectRetries > 0 {
		cfg.MaxAttempts = c.Roulette.SideEffectRetries
	}
	if c.Roulette.SideEffectTimeout.Duration > 0 {
		cfg.Timeout = c.Roulette.SideEffectTimeout.Duration
	}
	return cfg
}
