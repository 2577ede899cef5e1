package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	redislib "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/arclight-labs/tracewrap-go/instrument"
)

// Compile-time interface check.
var _ redislib.Hook = (*otelHook)(nil)

// otelHook traces every dial, command, and pipeline of a go-redis
// client.
type otelHook struct {
	cfg *config
}

// NewHook creates a redis hook. Register it with client.AddHook, or use
// InstrumentClient which also derives connection attributes.
func NewHook(opts ...Option) redislib.Hook {
	return &otelHook{cfg: newConfig(opts...)}
}

// InstrumentClient registers a tracing hook on the client. Peer address
// and database index are taken from the client's options.
func InstrumentClient(client *redislib.Client, opts ...Option) {
	if client == nil {
		return
	}

	cfg := newConfig(opts...)
	cfg.ConnAttributes = append(cfg.ConnAttributes, clientAttributes(client.Options())...)

	client.AddHook(&otelHook{cfg: cfg})
}

// clientAttributes derives peer attributes from client options.
func clientAttributes(opt *redislib.Options) []attribute.KeyValue {
	if opt == nil {
		return nil
	}

	attrs := make([]attribute.KeyValue, 0, 3)

	host, port, err := net.SplitHostPort(opt.Addr)
	if err != nil {
		attrs = append(attrs, attribute.String("net.peer.name", opt.Addr))
	} else {
		attrs = append(attrs, attribute.String("net.peer.name", host))
		if p, convErr := strconv.Atoi(port); convErr == nil {
			attrs = append(attrs, attribute.Int("net.peer.port", p))
		}
	}

	attrs = append(attrs, attribute.Int("db.redis.database_index", opt.DB))
	return attrs
}

// DialHook implements redis.Hook.
func (h *otelHook) DialHook(next redislib.DialHook) redislib.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if instrument.IsSuppressed(ctx) {
			return next(ctx, network, addr)
		}

		ctx, span := h.cfg.Tracer.Start(ctx, "redis.dial",
			trace.WithSpanKind(trace.SpanKindClient),
		)
		defer span.End()

		if span.IsRecording() {
			span.SetAttributes(
				attribute.String("db.system", dbSystem),
				attribute.String("net.peer.name", addr),
			)
		}

		conn, err := next(ctx, network, addr)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return conn, err
	}
}

// ProcessHook implements redis.Hook. One CLIENT span per command, named
// after the command.
func (h *otelHook) ProcessHook(next redislib.ProcessHook) redislib.ProcessHook {
	return func(ctx context.Context, cmd redislib.Cmder) error {
		if instrument.IsSuppressed(ctx) {
			return next(ctx, cmd)
		}

		ctx, span := h.cfg.Tracer.Start(ctx, strings.ToUpper(cmd.Name()),
			trace.WithSpanKind(trace.SpanKindClient),
		)
		defer span.End()

		if span.IsRecording() {
			span.SetAttributes(h.commandAttributes(formatCommand(cmd))...)
		}

		err := next(ctx, cmd)
		if err != nil && err != redislib.Nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

// ProcessPipelineHook implements redis.Hook. A pipeline produces one
// span whose name joins the command names, mirroring what went over the
// wire as a single round trip.
func (h *otelHook) ProcessPipelineHook(next redislib.ProcessPipelineHook) redislib.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redislib.Cmder) error {
		if instrument.IsSuppressed(ctx) || len(cmds) == 0 {
			return next(ctx, cmds)
		}

		ctx, span := h.cfg.Tracer.Start(ctx, pipelineName(cmds),
			trace.WithSpanKind(trace.SpanKindClient),
		)
		defer span.End()

		if span.IsRecording() {
			statements := make([]string, len(cmds))
			for i, cmd := range cmds {
				statements[i] = formatCommand(cmd)
			}
			attrs := h.commandAttributes(strings.Join(statements, "\n"))
			attrs = append(attrs, attribute.Int("db.redis.pipeline_length", len(cmds)))
			span.SetAttributes(attrs...)
		}

		err := next(ctx, cmds)
		if err != nil && err != redislib.Nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

// commandAttributes builds the attribute set for one statement.
func (h *otelHook) commandAttributes(statement string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("db.system", dbSystem)}
	attrs = append(attrs, h.cfg.ConnAttributes...)

	if !h.cfg.DisableStatement && statement != "" {
		attrs = append(attrs, attribute.String("db.statement", truncate(statement)))
	}

	return attrs
}

// pipelineName joins the uppercased command names of a pipeline.
func pipelineName(cmds []redislib.Cmder) string {
	names := make([]string, len(cmds))
	for i, cmd := range cmds {
		names[i] = strings.ToUpper(cmd.Name())
	}
	return strings.Join(names, " ")
}

// formatCommand renders a command the way it reads in redis-cli.
func formatCommand(cmd redislib.Cmder) string {
	args := cmd.Args()
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = fmt.Sprint(arg)
	}
	return strings.Join(parts, " ")
}

func truncate(s string) string {
	if len(s) <= maxStatementLength {
		return s
	}
	return s[:maxStatementLength] + "..."
}
