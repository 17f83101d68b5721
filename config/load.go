package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/goliatone/go-errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. REPORT_EXPORT_MAX_ROWS.
const EnvPrefix = "REPORT"

// Loader reads configuration through viper and can watch the file for changes.
type Loader struct {
	v    *viper.Viper
	path string
	mu   sync.Mutex
}

// NewLoader creates a loader. An empty path uses defaults and the environment only.
func NewLoader(path string) *Loader {
	v := viper.New()
	setDefaults(v, Defaults())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
	}
	return &Loader{v: v, path: path}
}

// Load reads the config file when one is set, applies environment overrides
// and validates the result.
func Load(path string) (Config, error) {
	return NewLoader(path).Load()
}

// Load reads and validates the configuration.
func (l *Loader) Load() (Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.path != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrap(err, errors.CategoryValidation, fmt.Sprintf("read config file %q failed", l.path)).
				WithTextCode("CONFIG_READ")
		}
	}
	return l.decode()
}

func (l *Loader) decode() (Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, errors.CategoryValidation, "decode config failed").
			WithTextCode("CONFIG_DECODE")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Watch reloads the config file on change and hands the result to fn. It is a
// no-op without a config file.
func (l *Loader) Watch(fn func(Config, error)) {
	if l.path == "" || fn == nil {
		return
	}
	l.v.OnConfigChange(func(evt fsnotify.Event) {
		if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
			return
		}
		l.mu.Lock()
		cfg, err := l.decode()
		l.mu.Unlock()
		fn(cfg, err)
	})
	l.v.WatchConfig()
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.base_path", cfg.Server.BasePath)

	v.SetDefault("export.max_rows", cfg.Export.MaxRows)
	v.SetDefault("export.max_bytes", cfg.Export.MaxBytes)
	v.SetDefault("export.max_body_bytes", cfg.Export.MaxBodyBytes)
	v.SetDefault("export.timeout", cfg.Export.Timeout)
	v.SetDefault("export.default_format", cfg.Export.DefaultFormat)
	v.SetDefault("export.locale", cfg.Export.Locale)
	v.SetDefault("export.timezone", cfg.Export.Timezone)

	v.SetDefault("chromium.enabled", cfg.Chromium.Enabled)
	v.SetDefault("chromium.path", cfg.Chromium.Path)
	v.SetDefault("chromium.headless", cfg.Chromium.Headless)
	v.SetDefault("chromium.args", cfg.Chromium.Args)
	v.SetDefault("chromium.timeout", cfg.Chromium.Timeout)

	v.SetDefault("store.dir", cfg.Store.Dir)
	v.SetDefault("store.max_files", cfg.Store.MaxFiles)
	v.SetDefault("store.ttl", cfg.Store.TTL)

	v.SetDefault("history.enabled", cfg.History.Enabled)
	v.SetDefault("history.dsn", cfg.History.DSN)
	v.SetDefault("history.keep", cfg.History.Keep)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.encoding", cfg.Log.Encoding)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
	v.SetDefault("metrics.namespace", cfg.Metrics.Namespace)
}
