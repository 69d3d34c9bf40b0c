// Package config manages application configuration from environment variables,
// config files, and default values.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration indicates a configuration loading or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration. Values can be set via
// environment variables prefixed with BOT_ (e.g. BOT_TELEGRAM_TOKEN) or
// through config.yaml.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Wolf       WolfConfig       `mapstructure:"wolf"`
	Bots       BotsConfig       `mapstructure:"bots"`
	Race       RaceConfig       `mapstructure:"race"`
	AutoDelete AutoDeleteConfig `mapstructure:"auto_delete"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the dialog front-end settings.
type TelegramConfig struct {
	Token       string `mapstructure:"token"         validate:"required"`
	AdminUserID int64  `mapstructure:"admin_user_id" validate:"required,gt=0"`
}

// HTTPConfig holds the HTTP API listener settings.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// DatabaseConfig holds the SQLite bookkeeping database settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// WolfConfig holds the game-service transport settings.
type WolfConfig struct {
	ServerURL    string        `mapstructure:"server_url"    validate:"required,url"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"  validate:"min=1s,max=2m"`
	ReplyTimeout time.Duration `mapstructure:"reply_timeout" validate:"min=1s,max=2m"`
	PingInterval time.Duration `mapstructure:"ping_interval" validate:"min=1s,max=5m"`
}

// BotsConfig holds per-variant behavior settings shared by all instances.
type BotsConfig struct {
	// ActionDelay is the pause between queued outbound actions.
	ActionDelay time.Duration `mapstructure:"action_delay" validate:"min=100ms,max=10m"`

	// FallbackGroupID is used when neither the start request nor the
	// settings store provides an operating group.
	FallbackGroupID string `mapstructure:"fallback_group_id" validate:"required"`

	// ExcludedGroupIDs are groups the monitor variant never follows
	// signals into.
	ExcludedGroupIDs []string `mapstructure:"excluded_group_ids"`

	// Counterparts maps known signal-bot user ids to the command phrase
	// sent into the announced group.
	Counterparts map[string]string `mapstructure:"counterparts" validate:"required,min=1"`

	CalculatorTargetID string `mapstructure:"calculator_target_id" validate:"required"`
	WriterTargetID     string `mapstructure:"writer_target_id"     validate:"required"`
	ReverserTargetID   string `mapstructure:"reverser_target_id"   validate:"required"`
	TimeTargetID       string `mapstructure:"time_target_id"       validate:"required"`

	CalculatorOpener string `mapstructure:"calculator_opener"`
	WriterOpener     string `mapstructure:"writer_opener"`
	ReverserOpener   string `mapstructure:"reverser_opener"`
	TimeOpener       string `mapstructure:"time_opener"`
}

// RaceConfig holds the race-session command phrases and reply markers for
// the race counterpart bot.
type RaceConfig struct {
	CounterpartID string `mapstructure:"counterpart_id" validate:"required"`

	AlertCmd  string `mapstructure:"alert_cmd"  validate:"required"`
	EnergyCmd string `mapstructure:"energy_cmd" validate:"required"`
	GrindCmd  string `mapstructure:"grind_cmd"  validate:"required"`
	TrainCmd  string `mapstructure:"train_cmd"  validate:"required"`

	AlertsOnMarker     string `mapstructure:"alerts_on_marker"     validate:"required"`
	AlertsOffMarker    string `mapstructure:"alerts_off_marker"    validate:"required"`
	FullEnergyMarker   string `mapstructure:"full_energy_marker"   validate:"required"`
	TrainingDoneMarker string `mapstructure:"training_done_marker" validate:"required"`
	RaceBusyMarker     string `mapstructure:"race_busy_marker"     validate:"required"`
	RaceEndedMarker    string `mapstructure:"race_ended_marker"    validate:"required"`
}

// AutoDeleteConfig holds the auto-delete helper task settings.
type AutoDeleteConfig struct {
	Announcement      string        `mapstructure:"announcement"`
	ThankYouMessage   string        `mapstructure:"thank_you_message"`
	AnnounceInterval  time.Duration `mapstructure:"announce_interval"   validate:"min=10s,max=1h"`
	PromotionInterval time.Duration `mapstructure:"promotion_interval"  validate:"min=1s,max=10m"`
	PromotionBudget   time.Duration `mapstructure:"promotion_budget"    validate:"min=1m,max=24h"`
}

// Validate checks the complete configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}
