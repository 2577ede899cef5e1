package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http/httptrace"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error type classifications for the error.type attribute.
const (
	ErrorTypeTimeout           = "timeout"
	ErrorTypeConnectionRefused = "connection_refused"
	ErrorTypeDNSError          = "dns_error"
	ErrorTypeTLSError          = "tls_error"
	ErrorTypeCancelled         = "cancelled"
	ErrorTypeConnectionReset   = "connection_reset"
	ErrorTypeEOF               = "eof"
	ErrorTypeUnknown           = "unknown"
)

// phase is one timed segment of the request lifecycle (DNS lookup, TCP
// connect, TLS handshake).
type phase struct {
	start time.Time
	end   time.Time
}

func (p phase) complete() bool { return !p.start.IsZero() && !p.end.IsZero() }

func (p phase) duration() time.Duration { return p.end.Sub(p.start) }

// networkTrace collects low-level timing from httptrace callbacks while
// one request is in flight. It is written only by the callbacks and read
// only after RoundTrip returns, so no locking is needed.
type networkTrace struct {
	dns     phase
	connect phase
	tls     phase

	gotConn    time.Time
	wroteReq   time.Time
	firstByte  time.Time
	reused     bool
	wasIdle    bool
	remoteAddr string
	tlsProto   string
	dnsAddrs   []string
}

// createClientTrace wires the collector into an httptrace.ClientTrace.
func createClientTrace(nt *networkTrace) *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) { nt.dns.start = time.Now() },
		DNSDone: func(info httptrace.DNSDoneInfo) {
			nt.dns.end = time.Now()
			for _, addr := range info.Addrs {
				nt.dnsAddrs = append(nt.dnsAddrs, addr.String())
			}
		},
		ConnectStart: func(_, _ string) { nt.connect.start = time.Now() },
		ConnectDone:  func(_, _ string, _ error) { nt.connect.end = time.Now() },

		TLSHandshakeStart: func() { nt.tls.start = time.Now() },
		TLSHandshakeDone: func(state tls.ConnectionState, _ error) {
			nt.tls.end = time.Now()
			nt.tlsProto = state.NegotiatedProtocol
		},

		GotConn: func(info httptrace.GotConnInfo) {
			nt.gotConn = time.Now()
			nt.reused = info.Reused
			nt.wasIdle = info.WasIdle
			if info.Conn != nil {
				if addr := info.Conn.RemoteAddr(); addr != nil {
					nt.remoteAddr = addr.String()
				}
			}
		},
		WroteRequest:         func(httptrace.WroteRequestInfo) { nt.wroteReq = time.Now() },
		GotFirstResponseByte: func() { nt.firstByte = time.Now() },
	}
}

// phaseEvents emits a start/done event pair for a completed phase.
func phaseEvents(span trace.Span, name string, p phase, extra ...attribute.KeyValue) {
	if !p.complete() {
		return
	}

	attrs := append([]attribute.KeyValue{
		attribute.Float64(name+".duration_ms", float64(p.duration().Milliseconds())),
	}, extra...)

	span.AddEvent(name+".start", trace.WithTimestamp(p.start))
	span.AddEvent(name+".done", trace.WithTimestamp(p.end), trace.WithAttributes(attrs...))
}

// addTraceEvents attaches the collected timing to the request span.
func (nt *networkTrace) addTraceEvents(span trace.Span) {
	phaseEvents(span, "dns", nt.dns, attribute.StringSlice("dns.addresses", nt.dnsAddrs))
	phaseEvents(span, "connect", nt.connect)
	phaseEvents(span, "tls", nt.tls, attribute.String("tls.protocol", nt.tlsProto))

	if !nt.gotConn.IsZero() {
		span.AddEvent("got_conn", trace.WithTimestamp(nt.gotConn),
			trace.WithAttributes(
				attribute.Bool("connection.reused", nt.reused),
				attribute.Bool("connection.was_idle", nt.wasIdle),
				attribute.String("network.peer.address", nt.remoteAddr),
			))
	}
	if !nt.wroteReq.IsZero() {
		span.AddEvent("wrote_request", trace.WithTimestamp(nt.wroteReq))
	}
	if !nt.firstByte.IsZero() {
		var ttfbMs float64
		if !nt.wroteReq.IsZero() {
			ttfbMs = float64(nt.firstByte.Sub(nt.wroteReq).Milliseconds())
		}
		span.AddEvent("got_first_response_byte", trace.WithTimestamp(nt.firstByte),
			trace.WithAttributes(attribute.Float64("ttfb_ms", ttfbMs)))
	}
}

// recordTimingMetrics feeds the same timing into the meter instruments.
func (nt *networkTrace) recordTimingMetrics(
	ctx context.Context,
	m *metrics,
	attrs []attribute.KeyValue,
) {
	if m == nil {
		return
	}

	if !nt.reused && !nt.connect.start.IsZero() {
		m.recordConnectionOpened(ctx, attrs)
	}
	if nt.dns.complete() {
		m.recordDNSDuration(ctx, nt.dns.duration(), attrs)
	}
	if nt.connect.complete() {
		m.recordConnectionDuration(ctx, nt.connect.duration(), attrs)
	}
	if nt.tls.complete() {
		m.recordTLSDuration(ctx, nt.tls.duration(), attrs)
	}
	if !nt.wroteReq.IsZero() && !nt.firstByte.IsZero() {
		m.recordTTFB(ctx, nt.firstByte.Sub(nt.wroteReq), attrs)
	}
}

// errnoTypes maps sentinel errors to their classification. Checked in
// order: the earlier entries are the more specific ones.
var errnoTypes = []struct {
	target error
	kind   string
}{
	{context.Canceled, ErrorTypeCancelled},
	{context.DeadlineExceeded, ErrorTypeTimeout},
	{syscall.ECONNREFUSED, ErrorTypeConnectionRefused},
	{syscall.ECONNRESET, ErrorTypeConnectionReset},
	{io.EOF, ErrorTypeEOF},
}

// messageTypes catches wrapped errors that lost their sentinel identity.
var messageTypes = []struct {
	substr string
	kind   string
}{
	{"timeout", ErrorTypeTimeout},
	{"connection refused", ErrorTypeConnectionRefused},
	{"connection reset", ErrorTypeConnectionReset},
	{"no such host", ErrorTypeDNSError},
	{"dns", ErrorTypeDNSError},
	{"certificate", ErrorTypeTLSError},
	{"x509", ErrorTypeTLSError},
	{"tls", ErrorTypeTLSError},
	{"eof", ErrorTypeEOF},
}

// classifyError returns the error.type classification for a transport
// error.
func classifyError(err error) string {
	if err == nil {
		return ""
	}

	for _, e := range errnoTypes {
		if errors.Is(err, e.target) {
			return e.kind
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorTypeDNSError
	}
	var tlsRecordErr *tls.RecordHeaderError
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &tlsRecordErr) || errors.As(err, &certErr) {
		return ErrorTypeTLSError
	}

	msg := strings.ToLower(err.Error())
	for _, e := range messageTypes {
		if strings.Contains(msg, e.substr) {
			return e.kind
		}
	}

	return ErrorTypeUnknown
}

// errorTypeFromStatusCode returns error.type for HTTP status codes. The
// numeric code itself is the error type for 4xx and 5xx responses.
func errorTypeFromStatusCode(statusCode int) string {
	if statusCode >= 400 {
		return strconv.Itoa(statusCode)
	}
	return ""
}

// setSpanError records a transport error on the span.
func setSpanError(span trace.Span, err error, errorType string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errorType != "" {
		span.SetAttributes(attribute.String("error.type", errorType))
	}
}
