// Package httpserver provides OpenTelemetry tracing middleware for
// net/http servers, plus the supporting middleware a traced server
// usually wants: panic recovery, request IDs, structured request
// logging, and request metrics.
//
// # Quick start
//
//	r := chi.NewRouter()
//	r.Use(httpserver.Tracing(httpserver.TracingConfig{
//	    ServiceName: "orders-api",
//	}))
//	r.Get("/orders/{id}", getOrder)
//
// Each request produces one SERVER span. Trace context is extracted
// from the incoming headers, so spans join the caller's trace when one
// is propagated. With chi the span is named "{method} {route pattern}"
// ("GET /orders/{id}"), so every request to a route shares one name;
// requests that match no route keep the "HTTP {method}" name and no
// http.route attribute. Responses of 500 and above mark the span as an
// error.
//
// Requests matching a pattern in TracingConfig.ExcludedURLs, or in the
// TRACEWRAP_HTTPSERVER_EXCLUDED_URLS environment variable, bypass
// tracing entirely.
//
// Framework-native middleware for gin, echo, and fiber lives under
// adapters/.
//
// # Composition
//
// Middleware compose with Chain, outermost first:
//
//	handler := httpserver.Chain(
//	    httpserver.Tracing(httpserver.DefaultTracingConfig()),
//	    httpserver.Recovery(logger),
//	    httpserver.RequestID(),
//	    httpserver.Logger(httpserver.LoggerConfig{Logger: logger}),
//	)(mux)
package httpserver
