package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dbtuneai/autoinc-agent/pkg/agent"
	"github.com/dbtuneai/autoinc-agent/pkg/checks"
	"github.com/dbtuneai/autoinc-agent/pkg/runner"
	"github.com/dbtuneai/autoinc-agent/pkg/telemetry"
	"github.com/dbtuneai/autoinc-agent/pkg/version"
	"github.com/spf13/viper"
)

func main() {
	// Define flags
	configFile := flag.String("config", "", "Path to the configuration file (default ./autoinc.yaml)")
	once := flag.Bool("once", false, "Run a single monitoring pass and exit")
	check := flag.Bool("check", false, "Verify that every host is reachable and exit")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetVersion())
		return
	}

	if *configFile != "" {
		viper.SetConfigFile(*configFile)
	} else {
		viper.SetConfigName("autoinc")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".") // optionally look for config in the working directory
	}

	// Read the configuration file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore the error
			log.Println("No config file found, proceeding with environment variables only.")
		} else {
			// Config file was found but another error occurred
			log.Fatalf("Error reading config file, %s", err)
		}
	}

	viper.SetEnvPrefix("AUTOINC") // Set a prefix for environment variables
	viper.AutomaticEnv()          // Read also environment variables

	os.Exit(run(*once, *check))
}

func run(once, check bool) int {
	logger := agent.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := agent.CreateAgent(ctx, logger)
	if err != nil {
		logger.Errorf("Failed to create agent: %v", err)
		return 1
	}
	defer a.Close()

	if a.Config.Tracing {
		provider, err := telemetry.Init(ctx, "autoinc-agent")
		if err != nil {
			logger.Errorf("Failed to initialise tracing: %v", err)
			return 1
		}
		defer func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				logger.Errorf("Failed to flush traces: %v", err)
			}
		}()
	}

	if check {
		if err := checks.CheckStartupRequirements(ctx, a.Prober, a.Sources, a.DB.ConnectTimeout, logger); err != nil {
			logger.Errorf("Startup checks failed:\n%v", err)
			return 1
		}
		logger.Info("All hosts reachable")
		return 0
	}

	interval := a.Config.Interval
	if once {
		interval = 0
	}

	logger.Infof("Starting %s", version.GetVersion())
	if err := runner.Run(ctx, a, interval); err != nil {
		logger.Errorf("Run failed: %v", err)
		if agent.IsTotalFailure(err) {
			return 1
		}
	}
	return 0
}
