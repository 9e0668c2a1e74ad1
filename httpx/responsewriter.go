package httpx

import "net/http"

// ResponseCapture wraps http.ResponseWriter to remember the status code
// and whether anything was written.
type ResponseCapture struct {
	http.ResponseWriter
	status  int
	written bool
}

// NewResponseCapture wraps w. The status defaults to 200.
func NewResponseCapture(w http.ResponseWriter) *ResponseCapture {
	return &ResponseCapture{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader records the status code and forwards it.
func (rc *ResponseCapture) WriteHeader(code int) {
	if rc.written {
		return
	}

	rc.status = code
	rc.written = true
	rc.ResponseWriter.WriteHeader(code)
}

// Write marks the response as written and forwards b.
func (rc *ResponseCapture) Write(b []byte) (int, error) {
	rc.written = true

	return rc.ResponseWriter.Write(b)
}

// Status returns the status code sent, or 200 if none was set explicitly.
func (rc *ResponseCapture) Status() int { return rc.status }

// Written reports whether a header or body has been written.
func (rc *ResponseCapture) Written() bool { return rc.written }

// Unwrap returns the underlying writer for http.ResponseController.
func (rc *ResponseCapture) Unwrap() http.ResponseWriter { return rc.ResponseWriter }
