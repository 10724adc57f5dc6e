package config

import (
	"errors"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	envPrefix         = "TIMETABLE"
	defaultConfigName = "timetable"
)

type Config struct {
	Env       string
	Log       LogConfig
	Generator GeneratorConfig

	// Constraint overrides actually set, keyed like model.Constraints' mapstructure tags
	Constraints map[string]any
}

type LogConfig struct {
	Level  string
	Format string
}

type GeneratorConfig struct {
	Strategy string
	Seed     int64 // Zero seeds from the clock
}

var constraintKeys = []string{
	"max_classes_per_day",
	"max_hours_per_day",
	"lab_duration_hours",
	"min_break_minutes",
	"lunch_duration_minutes",
	"theory_duration_hours",
	"theory_attempts",
	"lab_attempts",
	"teaching_days",
	"lab_days",
	"alternative_rooms",
	"fallback_classroom_id",
	"fallback_lab_id",
	"strict_repair",
	"population",
	"generations",
}

// Load reads .env, TIMETABLE_* variables and a config file. An explicit configFile must exist;
// otherwise ./timetable.{yaml,json,toml} is read when present.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	for _, key := range constraintKeys {
		_ = v.BindEnv("constraints." + key)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName(defaultConfigName)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("env")

	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	cfg.Generator = GeneratorConfig{
		Strategy: strings.ToLower(v.GetString("generator.strategy")),
		Seed:     v.GetInt64("generator.seed"),
	}

	cfg.Constraints = make(map[string]any)
	for _, key := range constraintKeys {
		if v.IsSet("constraints." + key) {
			cfg.Constraints[key] = v.Get("constraints." + key)
		}
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("generator.strategy", "randomized")
	v.SetDefault("generator.seed", 0)
}
