package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/dbtuneai/autoinc-agent/pkg/internal/utils"
	"github.com/dbtuneai/autoinc-agent/pkg/metrics"
	"github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	DEFAULT_CONFIG_KEY = "sinks"
)

type FileConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type WebhookConfig struct {
	URL     string        `mapstructure:"url" validate:"required,url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CloudWatchConfig struct {
	Namespace          string `mapstructure:"namespace"`
	AWSAccessKey       string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey string `mapstructure:"aws_secret_access_key"`
	AWSRegion          string `mapstructure:"aws_region" validate:"required"`
}

type StackdriverConfig struct {
	ProjectID       string `mapstructure:"project_id" validate:"required"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type OTelConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// Config enables report sinks. A nil block is disabled.
type Config struct {
	// TopPerHost limits every sink to the n fullest columns of each host.
	TopPerHost  int                `mapstructure:"top_per_host" validate:"gte=0"`
	File        *FileConfig        `mapstructure:"file"`
	Webhook     *WebhookConfig     `mapstructure:"webhook"`
	CloudWatch  *CloudWatchConfig  `mapstructure:"cloudwatch"`
	Stackdriver *StackdriverConfig `mapstructure:"stackdriver"`
	OTel        *OTelConfig        `mapstructure:"otel"`
}

func ConfigFromViper(key *string) (Config, error) {
	var keyValue string
	if key == nil {
		keyValue = DEFAULT_CONFIG_KEY
	} else {
		keyValue = *key
	}

	sinkConfig := viper.Sub(keyValue)
	if sinkConfig == nil {
		sinkConfig = viper.New()
	}

	sinkConfig.BindEnv("top_per_host", "AUTOINC_SINKS_TOP_PER_HOST")
	sinkConfig.BindEnv("file.path", "AUTOINC_SINKS_FILE_PATH")
	sinkConfig.BindEnv("webhook.url", "AUTOINC_SINKS_WEBHOOK_URL")
	sinkConfig.BindEnv("webhook.token", "AUTOINC_SINKS_WEBHOOK_TOKEN")

	var config Config
	err := sinkConfig.Unmarshal(&config)
	if err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %v", err)
	}

	blocks := []struct {
		name  string
		block interface{}
		set   bool
	}{
		{"file", config.File, config.File != nil},
		{"webhook", config.Webhook, config.Webhook != nil},
		{"cloudwatch", config.CloudWatch, config.CloudWatch != nil},
		{"stackdriver", config.Stackdriver, config.Stackdriver != nil},
	}
	for _, b := range blocks {
		if !b.set {
			continue
		}
		if err := utils.ValidateStruct(b.block); err != nil {
			return Config{}, fmt.Errorf("%s.%s: %w", keyValue, b.name, err)
		}
	}
	if err := utils.ValidateStruct(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Build creates every enabled sink. Sinks already created are closed when a
// later one fails.
func Build(ctx context.Context, config Config, client *retryablehttp.Client, logger *log.Logger) ([]Sink, error) {
	options := []metrics.Option{metrics.TopPerHost(config.TopPerHost)}

	var sinks []Sink
	fail := func(err error) ([]Sink, error) {
		CloseAll(logger, sinks...)
		return nil, err
	}

	if config.File != nil {
		s, err := NewFileSink(config.File.Path, logger, options...)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if config.Webhook != nil {
		sinks = append(sinks, NewWebhookSink(client, *config.Webhook, logger, options...))
	}
	if config.CloudWatch != nil {
		s, err := NewCloudWatchSink(ctx, *config.CloudWatch, logger, options...)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if config.Stackdriver != nil {
		s, err := NewStackdriverSink(ctx, *config.Stackdriver, logger, options...)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if config.OTel != nil && config.OTel.Enabled {
		s, err := NewOTelSink(ctx, *config.OTel, logger, options...)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}
