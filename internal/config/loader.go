package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load loads and validates configuration from:
// 1. Default values
// 2. config.yaml file
// 3. BOT_* environment variables
func Load() (*Config, error) {
	setDefaults()

	if err := readConfigFile(); err != nil {
		return nil, fmt.Errorf("%w: failed to load config file: %v", ErrConfiguration, err)
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readConfigFile initializes and loads the configuration using viper.
// A missing config file is not an error; defaults and environment
// variables still apply.
func readConfigFile() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("BOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %v", err)
		}
	}

	return nil
}

// setDefaults sets default values for optional configuration parameters.
func setDefaults() {
	viper.SetDefault("log.level", DefaultLogLevel)
	viper.SetDefault("log.json", DefaultLogJSON)

	// Required settings get empty defaults so environment variables
	// bind through Unmarshal; validation rejects them if still unset.
	viper.SetDefault("telegram.token", "")
	viper.SetDefault("telegram.admin_user_id", 0)

	viper.SetDefault("http.addr", DefaultHTTPAddr)

	viper.SetDefault("database.path", DefaultDBPath)

	viper.SetDefault("wolf.server_url", DefaultWolfServerURL)
	viper.SetDefault("wolf.dial_timeout", DefaultWolfDialTimeout)
	viper.SetDefault("wolf.reply_timeout", DefaultWolfReplyTimeout)
	viper.SetDefault("wolf.ping_interval", DefaultWolfPingInterval)

	viper.SetDefault("bots.action_delay", DefaultActionDelay)
	viper.SetDefault("bots.fallback_group_id", DefaultFallbackGroupID)
	viper.SetDefault("bots.excluded_group_ids", DefaultExcludedGroupIDs)
	viper.SetDefault("bots.counterparts", DefaultCounterparts)
	viper.SetDefault("bots.calculator_target_id", DefaultCalculatorTargetID)
	viper.SetDefault("bots.writer_target_id", DefaultWriterTargetID)
	viper.SetDefault("bots.reverser_target_id", DefaultReverserTargetID)
	viper.SetDefault("bots.time_target_id", DefaultTimeTargetID)
	viper.SetDefault("bots.calculator_opener", DefaultCalculatorOpener)
	viper.SetDefault("bots.writer_opener", DefaultWriterOpener)
	viper.SetDefault("bots.reverser_opener", DefaultReverserOpener)
	viper.SetDefault("bots.time_opener", DefaultTimeOpener)

	viper.SetDefault("race.counterpart_id", DefaultRaceCounterpartID)
	viper.SetDefault("race.alert_cmd", DefaultRaceAlertCmd)
	viper.SetDefault("race.energy_cmd", DefaultRaceEnergyCmd)
	viper.SetDefault("race.grind_cmd", DefaultRaceGrindCmd)
	viper.SetDefault("race.train_cmd", DefaultRaceTrainCmd)
	viper.SetDefault("race.alerts_on_marker", DefaultAlertsOnMarker)
	viper.SetDefault("race.alerts_off_marker", DefaultAlertsOffMarker)
	viper.SetDefault("race.full_energy_marker", DefaultFullEnergyMarker)
	viper.SetDefault("race.training_done_marker", DefaultTrainingDoneMarker)
	viper.SetDefault("race.race_busy_marker", DefaultRaceBusyMarker)
	viper.SetDefault("race.race_ended_marker", DefaultRaceEndedMarker)

	viper.SetDefault("auto_delete.announcement", DefaultAnnouncement)
	viper.SetDefault("auto_delete.thank_you_message", DefaultThankYouMessage)
	viper.SetDefault("auto_delete.announce_interval", DefaultAnnounceInterval)
	viper.SetDefault("auto_delete.promotion_interval", DefaultPromotionInterval)
	viper.SetDefault("auto_delete.promotion_budget", DefaultPromotionBudget)
}
