package log

import (
	"fmt"

	"mirrorsync/internal/model"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	outcomeOK     = "OK"
	outcomeFailed = "FAILED"
)

//ActionLog is the append-only record stream of the sync actions.
//Every line looks like: <ISO-8601 timestamp> <ACTION_KIND> <relative-path> <OUTCOME>.
type ActionLog struct {
	zl *zap.Logger
}

//NewActionLog opens (or creates) the file at path in append mode.
//If echoToStd is true, every record is printed to stdout as well.
func NewActionLog(path string, echoToStd bool) (*ActionLog, error) {
	outputs := []string{path}
	if echoToStd {
		outputs = append(outputs, "stdout")
	}
	zl, err := zap.Config{
		Level:             zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding:          "console",
		DisableCaller:     true,
		DisableStacktrace: true,
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:       "msg",
			TimeKey:          "ts",
			LineEnding:       zapcore.DefaultLineEnding,
			EncodeTime:       zapcore.ISO8601TimeEncoder,
			EncodeDuration:   zapcore.StringDurationEncoder,
			ConsoleSeparator: " ",
		},
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}.Build()
	if err != nil {
		return nil, fmt.Errorf("cannot open action log %q: %w", path, err)
	}
	return &ActionLog{zl: zl}, nil
}

//NewActionLogWithCore is mostly for tests: the records go to the given core.
func NewActionLogWithCore(core zapcore.Core) *ActionLog {
	return &ActionLog{zl: zap.New(core)}
}

//Report writes one record. The record's timestamp is the moment the action finished.
func (a *ActionLog) Report(res model.SyncResult) {
	if ce := a.zl.Check(zap.InfoLevel, FormatRecord(res)); ce != nil {
		if !res.At.IsZero() {
			ce.Time = res.At
		}
		ce.Write()
	}
}

func (a *ActionLog) Sync() error {
	return a.zl.Sync()
}

//FormatRecord renders a result without the timestamp.
func FormatRecord(res model.SyncResult) string {
	if res.Status == model.ResultSucceeded {
		return fmt.Sprintf("%s %s", res.Action, outcomeOK)
	}
	return fmt.Sprintf("%s %s: %s", res.Action, outcomeFailed, res.Reason())
}
