package roster

import (
	"context"
	"fmt"

	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
	"github.com/dbtuneai/autoinc-agent/pkg/internal/utils"
	"github.com/spf13/viper"
)

const (
	DEFAULT_CONFIG_KEY = "discovery"
)

type RDSConfig struct {
	AWSAccessKey       string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey string `mapstructure:"aws_secret_access_key"`
	AWSRegion          string `mapstructure:"aws_region" validate:"required"`
	IdentifierPrefix   string `mapstructure:"identifier_prefix"`
}

type CloudSQLConfig struct {
	ProjectID       string `mapstructure:"project_id" validate:"required"`
	CredentialsFile string `mapstructure:"credentials_file"`
	PrivateIP       bool   `mapstructure:"private_ip"`
}

type AivenConfig struct {
	APIToken    string `mapstructure:"api_token" validate:"required"`
	ProjectName string `mapstructure:"project_name" validate:"required"`
}

type DockerConfig struct {
	Label string `mapstructure:"label"`
}

// Config enables the discovery backends. A nil block is disabled.
type Config struct {
	RDS      *RDSConfig      `mapstructure:"rds"`
	CloudSQL *CloudSQLConfig `mapstructure:"cloudsql"`
	Aiven    *AivenConfig    `mapstructure:"aiven"`
	Docker   *DockerConfig   `mapstructure:"docker"`
}

func ConfigFromViper(key *string) (Config, error) {
	var keyValue string
	if key == nil {
		keyValue = DEFAULT_CONFIG_KEY
	} else {
		keyValue = *key
	}

	discoveryConfig := viper.Sub(keyValue)
	if discoveryConfig == nil {
		discoveryConfig = viper.New()
	}

	// Without explicit keys RDS discovery uses the default AWS chain.
	discoveryConfig.BindEnv("rds.aws_access_key_id", "AUTOINC_AWS_ACCESS_KEY_ID")
	discoveryConfig.BindEnv("rds.aws_secret_access_key", "AUTOINC_AWS_SECRET_ACCESS_KEY")
	discoveryConfig.BindEnv("aiven.api_token", "AUTOINC_AIVEN_API_TOKEN")

	var config Config
	err := discoveryConfig.Unmarshal(&config)
	if err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %v", err)
	}

	if config.RDS != nil {
		if err := utils.ValidateStruct(config.RDS); err != nil {
			return Config{}, fmt.Errorf("discovery.rds: %w", err)
		}
	}
	if config.CloudSQL != nil {
		if err := utils.ValidateStruct(config.CloudSQL); err != nil {
			return Config{}, fmt.Errorf("discovery.cloudsql: %w", err)
		}
	}
	if config.Aiven != nil {
		if err := utils.ValidateStruct(config.Aiven); err != nil {
			return Config{}, fmt.Errorf("discovery.aiven: %w", err)
		}
	}
	return config, nil
}

// Sources builds the static source and one source per enabled backend.
func Sources(ctx context.Context, config Config, db fleet.Config) ([]Source, error) {
	sources := []Source{Static(db.Hosts)}

	if config.RDS != nil {
		source, err := NewRDS(ctx, *config.RDS, db.Engine)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	if config.CloudSQL != nil {
		source, err := NewCloudSQL(ctx, *config.CloudSQL, db.Engine)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	if config.Aiven != nil {
		source, err := NewAiven(*config.Aiven, db.Engine)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	if config.Docker != nil {
		source, err := NewDocker(*config.Docker, db.DefaultPort())
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, nil
}
