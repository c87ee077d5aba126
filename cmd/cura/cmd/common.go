package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/cura-ai/cura/internal/adapters/llm"
	"github.com/cura-ai/cura/internal/adapters/store"
	"github.com/cura-ai/cura/internal/config"
	"github.com/cura-ai/cura/internal/core"
	"github.com/cura-ai/cura/internal/logging"
	"github.com/cura-ai/cura/internal/service"
)

// app bundles the wired collaborators every command needs.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *core.Registry
	engine   *service.DiagnosisEngine
	chat     *service.ChatService
	store    core.Store
	logFile  *os.File
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// openLogFile opens the configured log destination for appending,
// creating parent directories as needed.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// newApp loads config, validates it, and wires the full pipeline.
func newApp() (*app, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, err
	}

	var logOutput io.Writer = os.Stderr
	var logFile *os.File
	if cfg.Log.File != "" {
		logFile, err = openLogFile(cfg.Log.File)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		logOutput = logFile
	}
	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: logOutput,
	})
	closeLogFile := func() {
		if logFile != nil {
			_ = logFile.Close()
		}
	}

	timeout, _ := time.ParseDuration(cfg.LLM.Timeout)
	client, err := llm.NewOpenAIClient(llm.Config{
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   timeout,
		RetryPolicy: &llm.RetryPolicy{
			MaxAttempts:  cfg.LLM.MaxRetries,
			BaseDelay:    time.Second,
			MaxDelay:     30 * time.Second,
			JitterFactor: 0.2,
			Multiplier:   2.0,
		},
	}, logger)
	if err != nil {
		closeLogFile()
		return nil, fmt.Errorf("configuring llm client: %w (set CURA_LLM_API_KEY or llm.api_key)", err)
	}

	st, err := store.New(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		closeLogFile()
		return nil, fmt.Errorf("opening store: %w", err)
	}

	prompts, err := service.NewPromptRenderer()
	if err != nil {
		_ = st.Close()
		closeLogFile()
		return nil, err
	}

	registry := service.NewDefaultRegistry()
	selector := service.NewSpecialistSelector(registry, client, prompts, logger)
	engine := service.NewDiagnosisEngine(registry, client, prompts, selector, logger,
		service.WithAutoSelect(cfg.Engine.AutoSelect),
		service.WithDefaultSpecialists(cfg.Engine.DefaultSpecialists),
		service.WithTemperature(cfg.LLM.Temperature),
	)
	chat := service.NewChatService(client, prompts, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		engine:   engine,
		chat:     chat,
		store:    st,
		logFile:  logFile,
	}, nil
}
