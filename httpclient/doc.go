// Package httpclient provides OpenTelemetry tracing for outgoing HTTP
// requests by wrapping an http.RoundTripper.
//
// # Quick start
//
//	client := &http.Client{}
//	httpclient.InstrumentClient(client,
//	    httpclient.WithServiceName("billing"),
//	)
//	resp, err := client.Do(req)
//
// Every request produces one CLIENT span named "HTTP {method}" (or
// whatever the configured SpanNameFormatter returns), carrying the
// request URL, peer host and port, and the response status code. Trace
// context is injected into the outgoing headers so the remote service
// can continue the trace.
//
// A response status of 400 or above marks the span as an error with the
// status code as error.type. Transport-level failures are classified
// (timeout, dns_error, connection_refused, ...) and the original error
// is returned to the caller unchanged.
//
// # Suppression and exclusion
//
// The transport marks the delegated request's context as suppressed, so
// a lower instrumentation layer sharing the same context does not open
// a second span for the same request. Requests whose URL matches a
// pattern in WithExcludedURLs, or in the
// TRACEWRAP_HTTPCLIENT_EXCLUDED_URLS environment variable, bypass
// instrumentation entirely.
//
// # Restoring
//
// UninstrumentClient puts the original transport back:
//
//	httpclient.UninstrumentClient(client)
package httpclient
