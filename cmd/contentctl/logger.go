package main

import (
	"context"
	"fmt"

	content "github.com/goliatone/go-content"
	"github.com/goliatone/go-content/internal/config"
	"github.com/goliatone/go-content/pkg/activity"
	"github.com/goliatone/go-content/pkg/rules"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newZapLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if cfg.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

// zapLogger backs content.Logger with zap.
type zapLogger struct {
	log *zap.Logger
}

func (l zapLogger) Log(event content.LogEvent) {
	fields := make([]zap.Field, 0, len(event.Fields)+1)
	for key, value := range event.Fields {
		fields = append(fields, zap.Any(key, value))
	}
	if event.Err != nil {
		fields = append(fields, zap.Error(event.Err))
	}
	var level zapcore.Level
	switch event.Level {
	case content.LevelDebug:
		level = zapcore.DebugLevel
	case content.LevelWarn:
		level = zapcore.WarnLevel
	case content.LevelError:
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}
	if ce := l.log.Check(level, event.Message); ce != nil {
		ce.Write(fields...)
	}
}

func evaluatorLogger(log *zap.Logger) rules.EvaluatorLogger {
	return rules.EvaluatorLoggerFunc(func(event rules.EvaluatorLogEvent) {
		log.Debug("rule evaluated",
			zap.String("engine", event.Engine),
			zap.String("target", event.Target),
			zap.Duration("duration", event.Duration),
			zap.Bool("passed", event.Passed),
			zap.Error(event.Err),
		)
	})
}

// activityLog writes activity events to the log.
type activityLog struct {
	log *zap.Logger
}

func (h activityLog) Notify(_ context.Context, event activity.Event) error {
	h.log.Info("activity",
		zap.String("verb", event.Verb),
		zap.String("object_type", event.ObjectType),
		zap.String("object_id", event.ObjectID),
		zap.String("actor_id", event.ActorID),
		zap.String("channel", event.Channel),
		zap.Any("metadata", event.Metadata),
	)
	return nil
}
