package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RefreshConfig tunes the refresh pipeline: upstream endpoints, timeouts,
// the summary artifact and the background scheduler.
type RefreshConfig struct {
	CountriesURL string        `mapstructure:"countriesUrl"`
	RatesURL     string        `mapstructure:"ratesUrl"`
	FetchTimeout time.Duration `mapstructure:"fetchTimeout"`

	SummaryPath string `mapstructure:"summaryPath"`
	SummaryTopN int    `mapstructure:"summaryTopN"`

	SchedulerEnabled  bool          `mapstructure:"schedulerEnabled"`
	SchedulerInterval time.Duration `mapstructure:"schedulerInterval"`
}

func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		CountriesURL:      "https://restcountries.com/v2/all?fields=name,capital,region,population,flag,currencies",
		RatesURL:          "https://open.er-api.com/v6/latest/USD",
		FetchTimeout:      10 * time.Second,
		SummaryPath:       "summary.html",
		SummaryTopN:       5,
		SchedulerEnabled:  false,
		SchedulerInterval: 10 * time.Minute,
	}
}

// RefreshConfigHolder carries the current RefreshConfig and swaps it
// atomically when the config file changes on disk.
type RefreshConfigHolder struct {
	current atomic.Value // holds RefreshConfig
}

func NewRefreshConfigHolder() (*RefreshConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("atlas")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/atlas/config") // Volume-mounted config
	v.AddConfigPath("/etc/atlas")            // System config
	v.AddConfigPath(".")                     // Current directory (dev mode)

	v.SetEnvPrefix("ATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRefreshConfig()
	v.SetDefault("refresh.countriesUrl", defaults.CountriesURL)
	v.SetDefault("refresh.ratesUrl", defaults.RatesURL)
	v.SetDefault("refresh.fetchTimeout", defaults.FetchTimeout)
	v.SetDefault("refresh.summaryPath", defaults.SummaryPath)
	v.SetDefault("refresh.summaryTopN", defaults.SummaryTopN)
	v.SetDefault("refresh.schedulerEnabled", defaults.SchedulerEnabled)
	v.SetDefault("refresh.schedulerInterval", defaults.SchedulerInterval)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg RefreshConfig
	if err := v.UnmarshalKey("refresh", &cfg); err != nil {
		return nil, err
	}
	if err := validateRefreshConfig(cfg); err != nil {
		return nil, err
	}

	holder := &RefreshConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RefreshConfig
		if err := v.UnmarshalKey("refresh", &updated); err != nil {
			log.Printf("[refresh-config] reload failed: %v", err)
			return
		}
		if err := validateRefreshConfig(updated); err != nil {
			log.Printf("[refresh-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[refresh-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticRefreshConfigHolder wraps a fixed configuration with no file
// watching behind it.
func NewStaticRefreshConfigHolder(cfg RefreshConfig) *RefreshConfigHolder {
	holder := &RefreshConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

// Current returns the active refresh configuration.
func (h *RefreshConfigHolder) Current() RefreshConfig {
	cfg, _ := h.current.Load().(RefreshConfig)
	return cfg
}

func validateRefreshConfig(cfg RefreshConfig) error {
	if strings.TrimSpace(cfg.CountriesURL) == "" {
		return errors.New("refresh.countriesUrl is required")
	}
	if strings.TrimSpace(cfg.RatesURL) == "" {
		return errors.New("refresh.ratesUrl is required")
	}
	if cfg.FetchTimeout <= 0 {
		return errors.New("refresh.fetchTimeout must be positive")
	}
	if cfg.SummaryTopN <= 0 {
		return errors.New("refresh.summaryTopN must be positive")
	}
	if cfg.SchedulerEnabled && cfg.SchedulerInterval < time.Minute {
		return errors.New("refresh.schedulerInterval must be at least one minute")
	}
	return nil
}
