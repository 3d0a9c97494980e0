package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/yigit/substitutions/internal/app/cli"
	"github.com/yigit/substitutions/internal/app/repositories"
	"github.com/yigit/substitutions/internal/app/services"
	"github.com/yigit/substitutions/internal/config"
	"github.com/yigit/substitutions/internal/domain"
	"github.com/yigit/substitutions/internal/pkg/helpers"
	"github.com/yigit/substitutions/internal/pkg/logger"
	"github.com/yigit/substitutions/internal/pkg/source"
)

var (
	configPath = kingpin.Flag("config", "Path to the YAML configuration file").Envar("CONFIG_PATH").Default(config.DefaultConfigPath).String()
	location   = kingpin.Flag("source", "URL or file path of the substitution rules document (overrides the config)").Short('s').String()
	keyStyle   = kingpin.Flag("key-style", "Merge key style: canonical or legacy").Enum("canonical", "legacy")
	timeout    = kingpin.Flag("timeout", "Fetch timeout (overrides the config)").Duration()
	noColor    = kingpin.Flag("no-color", "Disable colored output").Bool()
	verbose    = kingpin.Flag("verbose", "Log diagnostics to stderr").Short('v').Bool()
)

func main() {
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version("1.0")
	kingpin.CommandLine.Help = "Print course substitution rules with inverse pairs merged"
	kingpin.Parse()

	_ = godotenv.Load()

	level := logger.WarnLevel
	if *verbose {
		level = logger.DebugLevel
	}
	lgr := logger.Configure(logger.Config{Level: level, Pretty: true, Output: os.Stderr})

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	loc := cfg.Source.Location
	if *location != "" {
		loc = *location
	}
	fetchTimeout := helpers.ParseDuration(cfg.Source.Timeout, 10*time.Second)
	if *timeout > 0 {
		fetchTimeout = *timeout
	}
	style := cfg.KeyStyle()
	if *keyStyle != "" {
		style = domain.KeyStyle(*keyStyle)
	}

	src := source.New(source.Options{Location: loc, Timeout: fetchTimeout, MaxBodyBytes: cfg.Source.MaxBodyBytes})
	repo := repositories.NewSubstitutionRepository(src, lgr)
	svc := services.NewSubstitutionService(repo, style, fetchTimeout, lgr)
	defer svc.Close()

	snap, refreshErr := svc.Refresh(context.Background())
	if refreshErr != nil {
		lgr.Debug().Err(refreshErr).Str("source", src.Describe()).Msg("Refresh failed")
	}

	colorize := !*noColor && isatty.IsTerminal(os.Stdout.Fd())
	if err := cli.NewPrinter(os.Stdout, colorize).Print(snap); err != nil {
		lgr.Error().Err(err).Msg("Failed to write output")
		os.Exit(1)
	}

	if refreshErr != nil {
		svc.Close()
		os.Exit(1)
	}
}
