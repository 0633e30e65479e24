package server

import (
	"bytes"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConsoleMessage is the shape of a "console" event: one log entry of a render
type ConsoleMessage struct {
	RenderID  string    `json:"render"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// consoleSink forwards encoded log entries to the browser as "console" events
type consoleSink struct {
	stream *eventStream
}

func (c consoleSink) Write(p []byte) (int, error) {
	if err := c.stream.send("console", bytes.TrimRight(p, "\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (consoleSink) Sync() error { return nil }

// newConsoleLogger returns a logger that writes to base and also sends info
// and above to sink as JSON console messages tagged with renderID
func newConsoleLogger(base *zap.SugaredLogger, renderID string, sink zapcore.WriteSyncer) *zap.SugaredLogger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	console := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), sink, zapcore.InfoLevel)

	return base.Desugar().
		WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, console)
		})).
		Sugar().
		With("render", renderID)
}
