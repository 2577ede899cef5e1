package httpserver

import (
	"bufio"
	"bytes"
	"net"
	"net/http"
)

// responseWriter records the status code and byte count of a response as
// it streams through, and optionally mirrors a bounded prefix of the
// body for the logging middleware.
type responseWriter struct {
	http.ResponseWriter

	status       int
	bytesWritten int
	wroteHeader  bool

	bodyBuffer  *bytes.Buffer
	maxBodySize int
}

var (
	_ http.Flusher  = (*responseWriter)(nil)
	_ http.Hijacker = (*responseWriter)(nil)
	_ http.Pusher   = (*responseWriter)(nil)
)

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader records the status once; later calls are dropped the same
// way net/http drops superfluous WriteHeader calls.
func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}

	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n

	if rw.bodyBuffer != nil {
		if room := rw.maxBodySize - rw.bodyBuffer.Len(); room > 0 {
			rw.bodyBuffer.Write(b[:min(room, n)])
		}
	}
	return n, err
}

// Status returns the recorded status code.
func (rw *responseWriter) Status() int { return rw.status }

// BytesWritten returns the number of response body bytes written so far.
func (rw *responseWriter) BytesWritten() int { return rw.bytesWritten }

// Unwrap exposes the underlying writer for http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func (rw *responseWriter) Push(target string, opts *http.PushOptions) error {
	if p, ok := rw.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}
	return http.ErrNotSupported
}
