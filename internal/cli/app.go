// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/jeranaias/procubot-tui/internal/cloud"
	"github.com/jeranaias/procubot-tui/internal/config"
	"github.com/jeranaias/procubot-tui/internal/controller"
	"github.com/jeranaias/procubot-tui/internal/gemini"
	"github.com/jeranaias/procubot-tui/internal/i18n"
	"github.com/jeranaias/procubot-tui/internal/logging"
	"github.com/jeranaias/procubot-tui/internal/provider"
	"github.com/jeranaias/procubot-tui/internal/telemetry"
)

// =============================================================================
// GLOBAL FLAGS
// =============================================================================

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	provider   string
	model      string
	language   string
	search     bool
	noSearch   bool
}

func (f *globalFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "config file path (default ~/.procubot/config.toml)")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVarP(&f.provider, "provider", "p", "", "chat provider: gemini or openrouter")
	pf.StringVarP(&f.model, "model", "m", "", "model identifier")
	pf.StringVarP(&f.language, "lang", "l", "", "language: en or zh-TW")
	pf.BoolVar(&f.search, "search", false, "enable web search grounding")
	pf.BoolVar(&f.noSearch, "no-search", false, "disable web search grounding")
}

// apply copies flag overrides onto cfg. Flags win over the file and the
// environment.
func (f *globalFlags) apply(cfg *config.Config) {
	if f.provider != "" {
		cfg.Provider.Name = f.provider
	}
	if f.model != "" {
		cfg.Provider.Model = f.model
	}
	if f.language != "" {
		cfg.UI.Language = f.language
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	switch {
	case f.noSearch:
		cfg.Provider.Search = false
	case f.search:
		cfg.Provider.Search = true
	}
}

// path returns the config file in use.
func (f *globalFlags) path() (string, error) {
	if f.configPath != "" {
		return f.configPath, nil
	}
	return config.ActivePath()
}

// loadConfig loads the config file, applies the flags, validates the result
// and installs it as the global config.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	path, err := f.path()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	config.SetGlobal(cfg)
	return cfg, nil
}

// =============================================================================
// PROVIDERS
// =============================================================================

// providerFactory returns the session factory for a provider name.
func providerFactory(name string) (provider.Factory, error) {
	switch name {
	case config.ProviderGemini, "":
		return gemini.New, nil
	case config.ProviderOpenRouter:
		return cloud.New, nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want gemini or openrouter)", name)
	}
}

// modelName is the model shown to the user.
func modelName(cfg *config.Config) string {
	if cfg.Provider.Model != "" {
		return cfg.Provider.Model
	}
	if cfg.Provider.Name == config.ProviderOpenRouter {
		return cloud.DefaultModel
	}
	return gemini.DefaultModel
}

// =============================================================================
// APP
// =============================================================================

// app bundles what every chat front end needs: config, metrics and
// persisted usage.
type app struct {
	cfg     *config.Config
	lang    language.Tag
	factory provider.Factory
	metrics *telemetry.Metrics
	usage   *telemetry.UsageStorage
	log     *zap.Logger
}

// newApp loads the config and sets up logging. Every front end owns the
// terminal, so logs go to the log file.
func newApp(flags *globalFlags) (*app, error) {
	cfg, err := flags.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := logging.Init(cfg.Logging.Level, "file:"+cfg.LogPath()); err != nil {
		// Logging falls back to stderr; the session can still run
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning:")+" "+err.Error())
	}

	factory, err := providerFactory(cfg.Provider.Name)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		lang:    i18n.Parse(cfg.UI.Language),
		factory: factory,
		metrics: telemetry.New(),
		log:     logging.L(),
	}

	if dir, err := config.ConfigDir(); err == nil {
		if us, err := telemetry.NewUsageStorage(filepath.Join(dir, "usage")); err == nil {
			a.usage = us
		} else {
			a.log.Warn("usage_storage_unavailable", zap.Error(err))
		}
	}

	a.log.Info("session_config",
		zap.String("provider", cfg.Provider.Name),
		zap.String("model", modelName(cfg)),
		zap.Bool("search", cfg.Provider.Search),
		zap.String("language", i18n.Code(a.lang)),
		zap.String("api_key", maskKey(cfg.ResolveAPIKey())),
	)
	return a, nil
}

// controllerOptions builds controller options. The session config is read
// from the global config on every reset, so a reloaded file applies.
func (a *app) controllerOptions(onUpdate func(controller.Event)) controller.Options {
	return controller.Options{
		Config:         func() provider.Config { return config.Global().ProviderConfig() },
		Language:       a.lang,
		IdleTimeout:    a.cfg.Provider.IdleTimeout.Std(),
		RequestTimeout: a.cfg.Provider.RequestTimeout.Std(),
		OnUpdate:       onUpdate,
		Observer:       a.metrics,
		Logger:         a.log,
	}
}

// stats is the /stats report: this session, then the stored trend.
func (a *app) stats() string {
	out := a.metrics.Usage().Summary()
	if a.usage != nil {
		if tr, err := a.usage.Trends(7); err == nil && tr.Sessions > 0 {
			out += "\n\n" + tr.Format()
		}
	}
	return out
}

// close persists usage and metrics. Errors are logged, not returned: the
// conversation already ended.
func (a *app) close() {
	usage := a.metrics.EndSession()
	if a.usage != nil && usage.Turns > 0 {
		if err := a.usage.Save(usage); err != nil {
			a.log.Warn("usage_save_failed", zap.Error(err))
		}
	}
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := a.metrics.WriteTextfile(path); err != nil {
			a.log.Warn("metrics_write_failed", zap.String("path", path), zap.Error(err))
		}
	}
	logging.Sync()
}

// maskKey shows only the last four characters of a credential.
func maskKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 8:
		return "****"
	default:
		return "****" + key[len(key)-4:]
	}
}
