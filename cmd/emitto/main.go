package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/emitto/internal/app"
	"github.com/ternarybob/emitto/internal/common"
	"github.com/ternarybob/emitto/internal/server"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: emitto [flags] <command>

Commands:
  serve    Start the server with the cron scheduler (default)
  run      Execute one pipeline pass and exit
  stats    Print schedule statistics and exit

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Emitto version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup sequence: defaults -> config files -> env -> CLI flags,
	// then logger, then banner
	if len(configFiles) == 0 {
		if _, err := os.Stat("emitto.toml"); err == nil {
			configFiles = append(configFiles, "emitto.toml")
		} else if _, err := os.Stat("deployments/local/emitto.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/emitto.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *serverPort, *serverHost)

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Msg("Configuration loaded")

	command := "serve"
	if args := flag.Args(); len(args) > 0 {
		command = args[0]
	}

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	switch command {
	case "serve":
		runServe(application, logger)
	case "run":
		runOnce(application, logger)
	case "stats":
		runStats(application, logger)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		usage()
		os.Exit(2)
	}
}

// runServe starts the scheduler and HTTP server and blocks until interrupted
func runServe(application *app.App, logger arbor.ILogger) {
	if err := application.StartScheduler(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
		os.Exit(1)
	}

	srv := server.New(application.Config, logger, application.Scheduler, application.Publisher, application.Posts, app.PipelineJobName)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
			os.Exit(1)
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", application.Config.Server.Host, application.Config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received, shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
}

// runOnce executes a single pipeline pass
func runOnce(application *app.App, logger arbor.ILogger) {
	result, err := application.Pipeline.Run(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("Pipeline run failed")
		os.Exit(1)
	}

	fmt.Printf("Pipeline run complete: %d found, %d skipped, %d scheduled, %d failed (%s)\n",
		result.URLsFound, result.Skipped, result.Scheduled, result.Failed, result.Duration.Round(time.Millisecond))
}

// runStats prints schedule statistics as JSON
func runStats(application *app.App, logger arbor.ILogger) {
	stats, err := application.Publisher.Stats(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to compute stats")
		os.Exit(1)
	}

	encoded, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to encode stats")
		os.Exit(1)
	}
	fmt.Println(string(encoded))
}
