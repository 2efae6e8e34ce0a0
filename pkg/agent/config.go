package agent

import (
	"fmt"
	"time"

	"github.com/dbtuneai/autoinc-agent/pkg/internal/utils"
	"github.com/spf13/viper"
)

const (
	DEFAULT_CONFIG_KEY = "agent"
	DefaultInterval    = time.Hour
)

type Config struct {
	// Interval between runs. Zero or negative runs once.
	Interval time.Duration `mapstructure:"interval"`
	// HTTPRetries bounds retries of the webhook sink.
	HTTPRetries int `mapstructure:"http_retries" validate:"gte=0,lte=30"`
	// Tracing exports a span per run through OTLP.
	Tracing bool `mapstructure:"tracing"`
}

func ConfigFromViper(key *string) (Config, error) {
	var keyValue string
	if key == nil {
		keyValue = DEFAULT_CONFIG_KEY
	} else {
		keyValue = *key
	}

	agentConfig := viper.Sub(keyValue)
	if agentConfig == nil {
		agentConfig = viper.New()
	}

	agentConfig.SetDefault("interval", DefaultInterval)
	agentConfig.SetDefault("http_retries", 5)

	agentConfig.BindEnv("interval", "AUTOINC_INTERVAL")
	agentConfig.BindEnv("http_retries", "AUTOINC_HTTP_RETRIES")
	agentConfig.BindEnv("tracing", "AUTOINC_TRACING")

	var config Config
	err := agentConfig.Unmarshal(&config)
	if err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %v", err)
	}

	err = utils.ValidateStruct(&config)
	if err != nil {
		return Config{}, err
	}
	return config, nil
}
