package config

import "go.uber.org/zap/zapcore"

// LoggingConfig configures logging.
type LoggingConfig struct {
	File    string `yaml:"file" json:"file"`       // append-only JSON lines, "" disables the file sink
	Level   string `yaml:"level" json:"level"`     // debug, info, warn, error
	Console bool   `yaml:"console" json:"console"` // human readable stream on stderr
}

// ZapLevel parses Level, defaulting to info.
func (c LoggingConfig) ZapLevel() (zapcore.Level, error) {
	if c.Level == "" {
		return zapcore.InfoLevel, nil
	}
	return zapcore.ParseLevel(c.Level)
}
