package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/job-launcher/internal/adapters/comlink"
	"github.com/bnema/job-launcher/internal/application"
	"github.com/bnema/job-launcher/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".config/launcher"
	envPrefix  = "LAUNCHER"

	keyLogLevel           = "log.level"
	keyLogFormat          = "log.format"
	keyPort               = "comlink.port"
	keyDialTimeout        = "comlink.dial_timeout"
	keySendTimeout        = "comlink.send_timeout"
	keyMaxFrameBytes      = "comlink.max_frame_bytes"
	keyAckTimeout         = "session.ack_timeout"
	keyStopTimeout        = "session.stop_timeout"
	keyConnectConcurrency = "session.connect_concurrency"
	keyNameserver         = "resolver.nameserver"
)

type launcherConfig struct {
	LogLevel           string
	LogFormat          string
	Port               int
	DialTimeout        time.Duration
	SendTimeout        time.Duration
	MaxFrameBytes      int
	AckTimeout         time.Duration
	StopTimeout        time.Duration
	ConnectConcurrency int
	Nameserver         string
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "text")
	v.SetDefault(keyPort, application.DefaultPort)
	v.SetDefault(keyDialTimeout, comlink.DefaultDialTimeout)
	v.SetDefault(keySendTimeout, comlink.DefaultSendTimeout)
	v.SetDefault(keyMaxFrameBytes, comlink.DefaultMaxFrameBytes)
	v.SetDefault(keyAckTimeout, time.Duration(0))
	v.SetDefault(keyStopTimeout, application.DefaultStopTimeout)
	v.SetDefault(keyConnectConcurrency, application.DefaultConnectConcurrency)
	v.SetDefault(keyNameserver, "")
}

// loadConfig layers defaults, the config file, LAUNCHER_* environment
// variables and the flags bound in flagKeys, in increasing precedence.
func loadConfig(cmd *cobra.Command, configFile string, flagKeys map[string]string) (*viper.Viper, error) {
	v := viper.New()
	setConfigDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read config file %q: %w", domain.ErrConfig, configFile, err)
		}
	} else if homeDir, err := os.UserHomeDir(); err == nil {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(filepath.Join(homeDir, configDir))
		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				return nil, fmt.Errorf("%w: read config file: %w", domain.ErrConfig, err)
			}
		}
	}

	for key, flagName := range flagKeys {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind flag %q: %w", flagName, err)
		}
	}

	return v, nil
}

func loadLauncherConfig(cmd *cobra.Command, configFile string) (launcherConfig, error) {
	v, err := loadConfig(cmd, configFile, map[string]string{
		keyLogLevel:    "log-level",
		keyLogFormat:   "log-format",
		keyAckTimeout:  "ack-timeout",
		keyStopTimeout: "stop-timeout",
		keyDialTimeout: "dial-timeout",
		keyNameserver:  "nameserver",
	})
	if err != nil {
		return launcherConfig{}, err
	}

	cfg := launcherConfig{
		LogLevel:           v.GetString(keyLogLevel),
		LogFormat:          v.GetString(keyLogFormat),
		Port:               v.GetInt(keyPort),
		DialTimeout:        v.GetDuration(keyDialTimeout),
		SendTimeout:        v.GetDuration(keySendTimeout),
		MaxFrameBytes:      v.GetInt(keyMaxFrameBytes),
		AckTimeout:         v.GetDuration(keyAckTimeout),
		StopTimeout:        v.GetDuration(keyStopTimeout),
		ConnectConcurrency: v.GetInt(keyConnectConcurrency),
		Nameserver:         strings.TrimSpace(v.GetString(keyNameserver)),
	}

	return cfg, cfg.validate()
}

func (c launcherConfig) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: %s %d out of range", domain.ErrConfig, keyPort, c.Port)
	}
	if c.AckTimeout < 0 {
		return fmt.Errorf("%w: %s must not be negative", domain.ErrConfig, keyAckTimeout)
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrConfig, keyStopTimeout)
	}
	if c.MaxFrameBytes <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrConfig, keyMaxFrameBytes)
	}
	if c.ConnectConcurrency <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrConfig, keyConnectConcurrency)
	}

	return nil
}
