package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http/httptrace"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"given nil error, then returns empty", nil, ""},
		{"given context cancelled, then returns cancelled", context.Canceled, ErrorTypeCancelled},
		{"given deadline exceeded, then returns timeout", context.DeadlineExceeded, ErrorTypeTimeout},
		{
			"given wrapped cancellation, then sentinel still wins",
			fmt.Errorf("round trip: %w", context.Canceled),
			ErrorTypeCancelled,
		},
		{
			"given dns error type, then returns dns_error",
			&net.DNSError{Err: "no such host", Name: "example.com"},
			ErrorTypeDNSError,
		},
		{
			"given tls record header error, then returns tls_error",
			&tls.RecordHeaderError{Msg: "first record does not look like TLS"},
			ErrorTypeTLSError,
		},
		{
			"given refused message without sentinel, then message fallback applies",
			errors.New("dial tcp 127.0.0.1:1: connection refused"),
			ErrorTypeConnectionRefused,
		},
		{
			"given reset message, then returns connection_reset",
			errors.New("read: connection reset by peer"),
			ErrorTypeConnectionReset,
		},
		{
			"given x509 message, then returns tls_error",
			errors.New("x509: certificate signed by unknown authority"),
			ErrorTypeTLSError,
		},
		{
			"given unexpected eof message, then returns eof",
			errors.New("unexpected eof"),
			ErrorTypeEOF,
		},
		{
			"given unrecognized error, then returns unknown",
			errors.New("something odd happened"),
			ErrorTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyError(tt.err))
		})
	}
}

func TestErrorTypeFromStatusCode(t *testing.T) {
	t.Run("given success and redirect codes, then empty", func(t *testing.T) {
		for _, code := range []int{200, 201, 204, 301, 302, 399} {
			assert.Empty(t, errorTypeFromStatusCode(code), "code %d", code)
		}
	})

	t.Run("given client and server errors, then the code itself", func(t *testing.T) {
		assert.Equal(t, "404", errorTypeFromStatusCode(404))
		assert.Equal(t, "500", errorTypeFromStatusCode(500))
	})
}

func TestPhase(t *testing.T) {
	t.Run("given start without end, then phase incomplete", func(t *testing.T) {
		p := phase{start: time.Now()}
		assert.False(t, p.complete())
	})

	t.Run("given both timestamps, then duration positive", func(t *testing.T) {
		now := time.Now()
		p := phase{start: now, end: now.Add(7 * time.Millisecond)}
		require.True(t, p.complete())
		assert.Equal(t, 7*time.Millisecond, p.duration())
	})
}

// probeSpan starts a span on an in-memory exporter and returns it with a
// getter for the exported stubs.
func probeSpan(t *testing.T) (oteltrace.Span, func() tracetest.SpanStubs) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { tp.Shutdown(context.Background()) })

	_, span := tp.Tracer("test").Start(context.Background(), "probe")
	return span, exporter.GetSpans
}

func TestNetworkTrace_AddTraceEvents(t *testing.T) {
	t.Run("given completed dns phase, then start and done events present", func(t *testing.T) {
		span, exported := probeSpan(t)

		now := time.Now()
		nt := &networkTrace{
			dns:      phase{start: now, end: now.Add(10 * time.Millisecond)},
			dnsAddrs: []string{"192.0.2.1"},
		}
		nt.addTraceEvents(span)
		span.End()

		spans := exported()
		require.Len(t, spans, 1)

		var names []string
		for _, ev := range spans[0].Events {
			names = append(names, ev.Name)
		}
		assert.Contains(t, names, "dns.start")
		assert.Contains(t, names, "dns.done")
	})

	t.Run("given empty trace, then no events", func(t *testing.T) {
		span, exported := probeSpan(t)

		(&networkTrace{}).addTraceEvents(span)
		span.End()

		spans := exported()
		require.Len(t, spans, 1)
		assert.Empty(t, spans[0].Events)
	})
}

func TestNetworkTrace_RecordTimingMetrics(t *testing.T) {
	now := time.Now()
	nt := &networkTrace{dns: phase{start: now, end: now.Add(10 * time.Millisecond)}}

	t.Run("given instruments, then recording succeeds", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer mp.Shutdown(context.Background())

		m, err := newMetrics(mp.Meter("test"))
		require.NoError(t, err)

		assert.NotPanics(t, func() {
			nt.recordTimingMetrics(context.Background(), m, nil)
		})
	})

	t.Run("given nil metrics, then no-op", func(t *testing.T) {
		assert.NotPanics(t, func() {
			nt.recordTimingMetrics(context.Background(), nil, nil)
		})
	})
}

func TestCreateClientTrace(t *testing.T) {
	t.Run("given callbacks fire, then collector populated", func(t *testing.T) {
		nt := &networkTrace{}
		ct := createClientTrace(nt)

		ct.DNSStart(httptrace.DNSStartInfo{Host: "example.com"})
		ct.DNSDone(httptrace.DNSDoneInfo{})
		ct.ConnectStart("tcp", "192.0.2.1:443")
		ct.ConnectDone("tcp", "192.0.2.1:443", nil)
		ct.WroteRequest(httptrace.WroteRequestInfo{})
		ct.GotFirstResponseByte()

		assert.True(t, nt.dns.complete())
		assert.True(t, nt.connect.complete())
		assert.False(t, nt.wroteReq.IsZero())
		assert.False(t, nt.firstByte.IsZero())
	})
}
