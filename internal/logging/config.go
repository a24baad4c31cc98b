package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level, encoding and sink of a service logger.
type Config struct {
	// Level is one of debug, info, warn, error or fatal. Unknown values mean info.
	Level string `yaml:"level"`
	// Format is json or console.
	Format string `yaml:"format"`
	// Output is stdout, stderr or a file path opened for append.
	Output string `yaml:"output"`
}

// DefaultConfig is JSON at info level on stderr.
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: "json", Output: "stderr"}
}

// NewLogger builds the service logger described by cfg. A nil cfg means
// DefaultConfig.
func NewLogger(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	sink := cfg.Output
	if sink == "" {
		sink = "stderr"
	}
	ws, _, err := zap.Open(sink)
	if err != nil {
		return nil, err
	}

	ec := encoderConfig()
	encoder := zapcore.NewJSONEncoder(ec)
	if f := strings.ToLower(cfg.Format); f == "console" || f == "text" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(ec)
	}

	core := zapcore.NewCore(encoder, ws, parseLevel(cfg.Level).zapLevel())
	return newLogger(zap.New(core)), nil
}

// NewConsole returns a human-readable logger on stdout without timestamps,
// used by command line tools for progress lines.
func NewConsole(level LogLevel) *Logger {
	ec := encoderConfig()
	ec.TimeKey = ""
	ec.CallerKey = ""
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.Lock(os.Stdout), level.zapLevel())
	return newLogger(zap.New(core))
}

func encoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.MessageKey = "message"
	ec.LevelKey = "level"
	ec.CallerKey = "caller"
	ec.NameKey = "logger"
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	ec.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	return ec
}

var levelNames = map[string]LogLevel{
	"DEBUG":   DebugLevel,
	"INFO":    InfoLevel,
	"WARN":    WarnLevel,
	"WARNING": WarnLevel,
	"ERROR":   ErrorLevel,
	"FATAL":   FatalLevel,
}

func parseLevel(level string) LogLevel {
	if l, ok := levelNames[strings.ToUpper(level)]; ok {
		return l
	}
	return InfoLevel
}
