package fleet

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/dbtuneai/autoinc-agent/pkg/internal/utils"
	"github.com/spf13/viper"
)

const (
	DEFAULT_CONFIG_KEY = "db"

	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
)

// Config is the connection configuration shared by every host of the fleet.
// Credentials are only ever held in memory for the duration of a run.
type Config struct {
	Engine         string        `mapstructure:"engine" validate:"required,oneof=mysql postgres"`
	Hosts          []string      `mapstructure:"hosts"`
	User           string        `mapstructure:"user" validate:"required"`
	Password       string        `mapstructure:"password"`
	Port           int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	Database       string        `mapstructure:"database"`
	TLS            string        `mapstructure:"tls"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"gte=0"`
	Concurrency    int           `mapstructure:"concurrency" validate:"gte=0"`
	ExcludeSchemas []string      `mapstructure:"exclude_schemas"`
	// FreshStats asks MySQL 8 not to serve cached information_schema statistics.
	// On by default.
	FreshStats bool `mapstructure:"fresh_stats"`
}

// DefaultPort returns the configured port, or the engine's default.
func (c Config) DefaultPort() int {
	if c.Port != 0 {
		return c.Port
	}
	if c.Engine == EnginePostgres {
		return 5432
	}
	return 3306
}

// Address returns host as a dialable host:port. A port already present in
// host wins over the configured one.
func (c Config) Address(host string) string {
	if h, p, err := net.SplitHostPort(host); err == nil && p != "" {
		return net.JoinHostPort(h, p)
	}
	return net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(c.DefaultPort()))
}

func ConfigFromViper(key *string) (Config, error) {
	var keyValue string
	if key == nil {
		keyValue = DEFAULT_CONFIG_KEY
	} else {
		keyValue = *key
	}

	dbConfig := viper.Sub(keyValue)
	if dbConfig == nil {
		dbConfig = viper.New()
	}

	dbConfig.SetDefault("engine", EngineMySQL)
	dbConfig.SetDefault("connect_timeout", DefaultTimeout)
	dbConfig.SetDefault("concurrency", 0)
	dbConfig.SetDefault("fresh_stats", true)

	dbConfig.BindEnv("engine", "AUTOINC_DB_ENGINE")
	dbConfig.BindEnv("hosts", "AUTOINC_DB_HOSTS")
	dbConfig.BindEnv("user", "AUTOINC_DB_USER")
	dbConfig.BindEnv("password", "AUTOINC_DB_PASSWORD")
	dbConfig.BindEnv("port", "AUTOINC_DB_PORT")
	dbConfig.BindEnv("database", "AUTOINC_DB_DATABASE")
	dbConfig.BindEnv("tls", "AUTOINC_DB_TLS")
	dbConfig.BindEnv("connect_timeout", "AUTOINC_DB_CONNECT_TIMEOUT")
	dbConfig.BindEnv("concurrency", "AUTOINC_DB_CONCURRENCY")
	dbConfig.BindEnv("exclude_schemas", "AUTOINC_DB_EXCLUDE_SCHEMAS")
	dbConfig.BindEnv("fresh_stats", "AUTOINC_DB_FRESH_STATS")

	var config Config
	err := dbConfig.Unmarshal(&config)
	if err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %v", err)
	}
	config.Engine = strings.ToLower(strings.TrimSpace(config.Engine))

	err = utils.ValidateStruct(&config)
	if err != nil {
		return Config{}, err
	}
	return config, nil
}
