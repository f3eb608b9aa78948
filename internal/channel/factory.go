// internal/channel/factory.go
package channel

import (
	"fmt"

	"go.uber.org/zap"

	"serial-relay/internal/config"
	"serial-relay/internal/utils"
)

// SettingsFromConfig translates a channel config record into Settings
func SettingsFromConfig(cfg config.ChannelConfig) (Settings, error) {
	parity, err := ParseParity(cfg.Parity)
	if err != nil {
		return Settings{}, err
	}

	stopBits, err := ParseStopBits(cfg.StopBits)
	if err != nil {
		return Settings{}, err
	}

	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return Settings{}, err
	}

	if cfg.BaudRate < 0 {
		return Settings{}, &ConfigError{Field: "baud_rate", Value: cfg.BaudRate, Reason: "must be positive"}
	}

	s := Settings{
		BaudRate: uint32(cfg.BaudRate),
		Parity:   parity,
		StopBits: stopBits,
		Mode:     mode,
	}
	return s, s.Validate()
}

// CreateSerialChannel creates and configures a serial channel from config.
// opener may be nil to use the OS serial driver.
func CreateSerialChannel(name string, cfg config.ChannelConfig, opener PortOpener, logger *zap.Logger) (*SerialChannel, error) {
	settings, err := SettingsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("channel %s: %w", name, err)
	}

	logger.Info("Creating serial channel",
		zap.String("channel", name),
		zap.String("port", cfg.Port),
		zap.Int("baud_rate", cfg.BaudRate),
		zap.String("mode", cfg.Mode),
	)

	ch := NewSerialChannel(name, &PortConfig{
		Path:        cfg.Port,
		ReadTimeout: cfg.ReadTimeout,
		Opener:      opener,
	}, logger)

	err = ch.Configure(settings)
	utils.NewChannelLogger(logger, name, cfg.Port).LogLifecycle("configure", err)
	if err != nil {
		return nil, fmt.Errorf("channel %s: %w", name, err)
	}
	return ch, nil
}
