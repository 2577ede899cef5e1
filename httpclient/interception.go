package httpclient

import (
	"errors"
	"net/http"

	"github.com/arclight-labs/tracewrap-go/instrument"
)

// Compile-time interface check.
var _ instrument.Interceptable = (*transportHandle)(nil)

// transportHandle is a restorable interception point over a client's
// transport. Install saves whatever transport the client currently has
// and swaps in the tracing layer; Remove puts the saved one back.
type transportHandle struct {
	client *http.Client
	opts   []Option
	saved  http.RoundTripper
}

// Interception returns a handle suitable for instrument.Registry. The
// client's transport is not touched until the registry installs the
// handle.
//
//	reg := instrument.NewRegistry(logger)
//	reg.Install("httpclient", httpclient.Interception(client))
//	...
//	reg.Remove("httpclient")
func Interception(client *http.Client, opts ...Option) instrument.Interceptable {
	return &transportHandle{client: client, opts: opts}
}

// Install implements instrument.Interceptable.
func (h *transportHandle) Install() error {
	if h.client == nil {
		return errors.New("http client is nil")
	}
	if _, ok := h.client.Transport.(*otelTransport); ok {
		return errors.New("transport already instrumented")
	}

	h.saved = h.client.Transport
	h.client.Transport = newOtelTransport(h.saved, newConfig(h.opts...))
	return nil
}

// Remove implements instrument.Interceptable.
func (h *transportHandle) Remove() error {
	if h.client == nil {
		return errors.New("http client is nil")
	}

	h.client.Transport = h.saved
	h.saved = nil
	return nil
}
