package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Guardrail policy modes.
const (
	GuardrailModeAdvisory = "advisory"
	GuardrailModeEnforce  = "enforce"
	GuardrailModeAutofix  = "autofix"
)

// GuardrailConfig decides what the universal dispatcher does with validator findings.
type GuardrailConfig struct {
	Mode           string `mapstructure:"mode"`
	RejectWarnings bool   `mapstructure:"reject_warnings"`
}

func DefaultGuardrailConfig() GuardrailConfig {
	return GuardrailConfig{Mode: GuardrailModeEnforce}
}

type GuardrailConfigHolder struct {
	current atomic.Value // holds GuardrailConfig
}

// NewStaticGuardrailConfigHolder returns a holder that never reloads.
func NewStaticGuardrailConfigHolder(cfg GuardrailConfig) *GuardrailConfigHolder {
	holder := &GuardrailConfigHolder{}
	holder.current.Store(normalizeGuardrailConfig(cfg))
	return holder
}

func NewGuardrailConfigHolder(cfg Config, log *zap.Logger) (*GuardrailConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("guardrail.config")

	v := viper.New()
	if cfg.GuardrailConfigPath != "" {
		v.SetConfigFile(cfg.GuardrailConfigPath)
	} else {
		v.SetConfigName("guardrail")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/hera")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultGuardrailConfig()
	v.SetDefault("guardrail.mode", defaults.Mode)
	v.SetDefault("guardrail.reject_warnings", defaults.RejectWarnings)

	fileLoaded := true
	if cfg.GuardrailConfigPath != "" {
		if _, err := os.Stat(cfg.GuardrailConfigPath); errors.Is(err, fs.ErrNotExist) {
			fileLoaded = false
		}
	}
	if fileLoaded {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read guardrail config: %w", err)
			}
			fileLoaded = false
		}
	}

	var loaded GuardrailConfig
	if err := v.UnmarshalKey("guardrail", &loaded); err != nil {
		return nil, err
	}
	loaded = normalizeGuardrailConfig(loaded)
	if err := validateGuardrailConfig(loaded); err != nil {
		return nil, err
	}

	holder := &GuardrailConfigHolder{}
	holder.current.Store(loaded)
	log.Info("guardrail policy loaded",
		zap.String("mode", loaded.Mode),
		zap.Bool("reject_warnings", loaded.RejectWarnings),
		zap.Bool("from_file", fileLoaded),
	)

	if fileLoaded && cfg.GuardrailWatch {
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated GuardrailConfig
			if err := v.UnmarshalKey("guardrail", &updated); err != nil {
				log.Warn("guardrail policy reload failed", zap.Error(err))
				return
			}
			updated = normalizeGuardrailConfig(updated)
			if err := validateGuardrailConfig(updated); err != nil {
				log.Warn("invalid guardrail policy ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("guardrail policy reloaded", zap.String("file", e.Name), zap.String("mode", updated.Mode))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *GuardrailConfigHolder) Get() GuardrailConfig {
	if h == nil {
		return DefaultGuardrailConfig()
	}
	cfg, ok := h.current.Load().(GuardrailConfig)
	if !ok {
		return DefaultGuardrailConfig()
	}
	return cfg
}

// Store replaces the active policy after validating it.
func (h *GuardrailConfigHolder) Store(cfg GuardrailConfig) error {
	cfg = normalizeGuardrailConfig(cfg)
	if err := validateGuardrailConfig(cfg); err != nil {
		return err
	}
	h.current.Store(cfg)
	return nil
}

func normalizeGuardrailConfig(cfg GuardrailConfig) GuardrailConfig {
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	if cfg.Mode == "" {
		cfg.Mode = GuardrailModeEnforce
	}
	return cfg
}

func validateGuardrailConfig(cfg GuardrailConfig) error {
	switch cfg.Mode {
	case GuardrailModeAdvisory, GuardrailModeEnforce, GuardrailModeAutofix:
		return nil
	default:
		return fmt.Errorf("guardrail.mode %q must be advisory, enforce or autofix", cfg.Mode)
	}
}
