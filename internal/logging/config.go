// internal/logging/config.go
package logging

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// TraceLevel sits below Debug and carries raw model request and
// response payloads. Filtered out everywhere but deep debugging.
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a level name, accepting "trace" alongside
// the standard zap names.
func LevelFromString(name string) (zapcore.Level, error) {
	if name == "trace" {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// Config holds logging configuration.
type Config struct {
	Level  zapcore.Level     `koanf:"level"`
	Format string            `koanf:"format"`
	Stdout bool              `koanf:"stdout"`
	File   string            `koanf:"file"`
	Fields map[string]string `koanf:"fields"`
}

// NewDefaultConfig returns the daemon defaults: info-level JSON to
// stdout, tagged with the service name.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: "json",
		Stdout: true,
		Fields: map[string]string{"service": "estimatord"},
	}
}

// Validate checks the config before a logger is built from it.
func (c *Config) Validate() error {
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("format must be %q or %q, got %q", "json", "console", c.Format)
	}
	if !c.Stdout && c.File == "" {
		return fmt.Errorf("no output configured: enable stdout or set a file")
	}
	for k := range c.Fields {
		if k == "" {
			return fmt.Errorf("field key cannot be empty")
		}
	}
	return nil
}
