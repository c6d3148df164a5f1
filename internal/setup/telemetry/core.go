package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

// Core implements zapcore.Core to forward operator alerts to OpenTelemetry.
// Each entry at error level or above becomes a span.
type Core struct {
	zapcore.LevelEnabler
	tracer trace.Tracer
	fields []zapcore.Field
}

// NewCore creates a new core that forwards entries to OpenTelemetry.
func NewCore(enab zapcore.LevelEnabler) zapcore.Core {
	return newCore(enab, otel.GetTracerProvider())
}

func newCore(enab zapcore.LevelEnabler, provider trace.TracerProvider) *Core {
	return &Core{
		LevelEnabler: enab,
		tracer:       provider.Tracer("warden/operator"),
	}
}

func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	if ent.Level < zapcore.ErrorLevel {
		return nil
	}

	_, span := c.tracer.Start(context.Background(), "alert."+alertCategory(ent))
	defer span.End()

	span.SetAttributes(spanAttributes(ent, append(append([]zapcore.Field(nil), c.fields...), fields...))...)
	return nil
}

func (c *Core) Sync() error {
	return nil
}

// spanAttributes flattens an entry and its fields into span attributes.
func spanAttributes(ent zapcore.Entry, fields []zapcore.Field) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("alert.message", ent.Message),
		attribute.String("alert.level", ent.Level.String()),
		attribute.String("alert.logger", ent.LoggerName),
		attribute.String("alert.caller", ent.Caller.String()),
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, field := range fields {
		field.AddTo(enc)
	}
	for key, value := range enc.Fields {
		attrs = append(attrs, attribute.String(key, fmt.Sprint(value)))
	}

	return attrs
}

// alertCategory names the subsystem that raised the entry.
func alertCategory(ent zapcore.Entry) string {
	switch {
	case strings.Contains(ent.LoggerName, "guildstate"), strings.Contains(ent.LoggerName, "guild_loader"):
		return "guildstate"
	case strings.Contains(ent.LoggerName, "engine"):
		return "engine"
	case strings.Contains(ent.LoggerName, "bot"), strings.Contains(ent.LoggerName, "actions"):
		return "bot"
	default:
		return "application"
	}
}
