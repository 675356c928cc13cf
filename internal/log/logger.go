package log

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

func (l Level) IsValid() bool {
	_, ok := levelsMapping[Level(strings.ToLower(string(l)))]
	return ok
}

type Field = zap.Field

//go:generate mockgen -source=logger.go -destination=../../generated/mocks/logger_mock.go -package=mocks

//Logger is the diagnostics logger used across the application.
//The records of the sync actions themselves go to the ActionLog.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Sync() error
}

//New builds a JSON logger writing to stderr. If logToStd is set, the console encoder is used instead,
//because in that case the diagnostics share the terminal with the echoed action records.
func New(lvl Level, logToStd bool) (Logger, error) {
	encoding := "json"
	if logToStd {
		encoding = "console"
	}
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(levelsMapping[Level(strings.ToLower(string(lvl)))]),
		Encoding: encoding,
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:     "msg",
			LevelKey:       "lvl",
			TimeKey:        "ts",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			StacktraceKey:  "stack",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}.Build()
}

//NewNop returns a logger that discards everything.
func NewNop() Logger {
	return zap.NewNop()
}

var levelsMapping = map[Level]zapcore.Level{
	DebugLevel: zap.DebugLevel,
	InfoLevel:  zap.InfoLevel,
	WarnLevel:  zap.WarnLevel,
	ErrorLevel: zap.ErrorLevel,
}
