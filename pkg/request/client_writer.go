package request

import "net/http"

// ClientWriter wraps a ResponseWriter and records the status code written to
// it, for request metrics.
type ClientWriter struct {
	http.ResponseWriter
	statusCode int
}

// NewClientWriter creates a new ClientWriter.
func NewClientWriter(w http.ResponseWriter) *ClientWriter {
	return &ClientWriter{ResponseWriter: w}
}

func (w *ClientWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *ClientWriter) Write(b []byte) (int, error) {
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// StatusCode returns the status code written to the response, defaulting to
// 200 when the handler never set one explicitly.
func (w *ClientWriter) StatusCode() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}
