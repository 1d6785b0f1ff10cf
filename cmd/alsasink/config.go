package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/gen2brain/alsasink"
)

const (
	configName = "alsasink"
	configType = "yaml"
	envPrefix  = "ALSASINK"

	configKeyVolume = "volume"
)

// configKeys are the accepted configuration keys: the module arguments plus volume.
var configKeys = []string{
	"sink_name",
	"sink_properties",
	"device",
	"format",
	"rate",
	"channels",
	"channel_map",
	"buffer_frames",
	configKeyVolume,
}

// appConfig is the decoded configuration file.
type appConfig struct {
	Module alsasink.Config `mapstructure:",squash"`
	// Volume is the initial sink volume in percent, negative keeps the device level.
	Volume float64 `mapstructure:"volume"`
}

// configManager loads the configuration and watches it for volume changes.
type configManager struct {
	logger *zap.SugaredLogger
	v      *viper.Viper

	mu      sync.Mutex
	current appConfig
}

func newConfigManager(logger *zap.SugaredLogger, path string) *configManager {
	v := viper.New()
	v.SetConfigType(configType)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range configKeys {
		_ = v.BindEnv(key)
	}

	v.SetDefault("sink_name", alsasink.DefaultSinkName)
	v.SetDefault("device", alsasink.DefaultDevice)
	v.SetDefault(configKeyVolume, -1.0)

	return &configManager{
		logger: logger.Named("config"),
		v:      v,
	}
}

// load reads the configuration. A missing file is not an error when no path was given.
func (cc *configManager) load() error {
	if err := cc.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}

		cc.logger.Debug("No config file found, using defaults and environment")
	} else {
		cc.logger.Debugw("Loaded config file", "path", cc.v.ConfigFileUsed())
	}

	cfg, err := cc.decode()
	if err != nil {
		return err
	}

	cc.mu.Lock()
	cc.current = cfg
	cc.mu.Unlock()

	cc.logger.Infow("Config values",
		"device", cfg.Module.Device,
		"sinkName", cfg.Module.SinkName,
		"format", cfg.Module.Format,
		"rate", cfg.Module.Rate,
		"channels", cfg.Module.Channels,
		"volume", cfg.Volume)

	return nil
}

func (cc *configManager) decode() (appConfig, error) {
	if err := checkKeys(cc.v.AllKeys()); err != nil {
		return appConfig{}, err
	}

	var cfg appConfig
	err := cc.v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToUint8HookFunc(),
		mapstructure.StringToUint32HookFunc(),
		mapstructure.StringToFloat64HookFunc(),
	)), func(dConf *mapstructure.DecoderConfig) {
		dConf.WeaklyTypedInput = false
	})
	if err != nil {
		return appConfig{}, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Volume > 100 {
		return appConfig{}, fmt.Errorf("%w: volume %.1f above 100", alsasink.ErrInvalidConfig, cfg.Volume)
	}

	return cfg, nil
}

// checkKeys rejects keys the module does not know, the way module arguments are validated.
func checkKeys(keys []string) error {
	var unknown []string
	for _, k := range keys {
		if !funk.ContainsString(configKeys, k) {
			unknown = append(unknown, k)
		}
	}

	if len(unknown) == 0 {
		return nil
	}

	sort.Strings(unknown)

	return fmt.Errorf("%w: unknown keys %s", alsasink.ErrInvalidConfig, strings.Join(unknown, ", "))
}

func (cc *configManager) config() appConfig {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	return cc.current
}

// watch reloads the file on writes and passes a changed volume to onVolume. Other changes are
// only logged since they need a reload of the module.
func (cc *configManager) watch(onVolume func(percent float64)) {
	if cc.v.ConfigFileUsed() == "" {
		return
	}

	const minTimeBetweenReloadAttempts = 500 * time.Millisecond

	var lastAttemptedReload time.Time

	cc.v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) {
			return
		}

		now := time.Now()
		if lastAttemptedReload.Add(minTimeBetweenReloadAttempts).After(now) {
			return
		}
		lastAttemptedReload = now

		cc.logger.Debugw("Config file modified, attempting reload", "event", event)

		cfg, err := cc.decode()
		if err != nil {
			cc.logger.Warnw("Failed to reload config file", "error", err)
			return
		}

		cc.mu.Lock()
		prev := cc.current
		cc.current.Volume = cfg.Volume
		cc.mu.Unlock()

		if cfg.Module != prev.Module {
			cc.logger.Warn("Module settings changed, restart to apply them")
		}

		if cfg.Volume != prev.Volume && cfg.Volume >= 0 {
			onVolume(cfg.Volume)
		}
	})
	cc.v.WatchConfig()
}
