package bootstrap

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/substitutions/internal/app/controllers"
	appRepos "github.com/yigit/substitutions/internal/app/repositories"
	appRoutes "github.com/yigit/substitutions/internal/app/routes"
	appServices "github.com/yigit/substitutions/internal/app/services"
	"github.com/yigit/substitutions/internal/app/views"
	"github.com/yigit/substitutions/internal/config"
	appMiddleware "github.com/yigit/substitutions/internal/middleware"
	"github.com/yigit/substitutions/internal/pkg/helpers"
	"github.com/yigit/substitutions/internal/pkg/logger"
	"github.com/yigit/substitutions/internal/pkg/source"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Source                 source.Source
	Watcher                *source.Watcher // nil unless a local file is watched
	SubstitutionRepository *appRepos.SubstitutionRepository
	SubstitutionService    appServices.SubstitutionService
	SubstitutionController *appControllers.SubstitutionController
	RefreshInterval        time.Duration
	Logger                 zerolog.Logger
}

// LoadConfigAndSetupLogger loads .env, the configuration file and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg("No .env file found, using process environment")
	}

	configPath := config.GetEnv("CONFIG_PATH", config.DefaultConfigPath)
	if _, err := os.Stat(configPath); err != nil {
		logger.Warn().Str("path", configPath).Msg("Config file not found, using defaults and environment")
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	lgr := logger.Configure(logger.ConfigFromStrings(cfg.Logging.Level, cfg.Logging.Format))
	lgr.Info().Str("logLevel", cfg.Logging.Level).Str("logFormat", cfg.Logging.Format).Str("config", configPath).Msg("Logger configured")
	return cfg, lgr, nil
}

// BuildDependencies wires the source, repository, service and controller.
func BuildDependencies(cfg *config.Config, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	timeout := helpers.ParseDuration(cfg.Source.Timeout, 10*time.Second)
	deps.Source = source.New(source.Options{
		Location:     cfg.Source.Location,
		Timeout:      timeout,
		MaxBodyBytes: cfg.Source.MaxBodyBytes,
	})
	lgr.Info().Str("source", deps.Source.Describe()).Dur("timeout", timeout).Msg("Substitution source configured")

	if fileSrc, ok := deps.Source.(*source.FileSource); ok && cfg.Source.Watch {
		deps.Watcher = source.NewWatcher(fileSrc.Path(), source.DefaultDebounce, logger.WithComponent(lgr, "watcher"))
	}
	deps.RefreshInterval = helpers.ParseOptionalDuration(cfg.Source.RefreshInterval)

	deps.SubstitutionRepository = appRepos.NewSubstitutionRepository(deps.Source, logger.WithComponent(lgr, "repository"))
	deps.SubstitutionService = appServices.NewSubstitutionService(
		deps.SubstitutionRepository,
		cfg.KeyStyle(),
		timeout,
		logger.WithComponent(lgr, "substitutions"),
	)
	deps.SubstitutionController = appControllers.NewSubstitutionController(deps.SubstitutionService)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware, templates and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr))

	tmpl, err := views.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse view templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	appRoutes.SetupRouter(router, deps.SubstitutionController)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router, nil
}
