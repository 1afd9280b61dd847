package occ

import "fmt"

// APIError is any terminal non-2xx response from OCC after the retry
// sequence, carrying the status code and raw body. Token-refresh failures
// escalate as an APIError wrapped with refresh context.
type APIError struct {
	Op     string
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("occ: %s returned %d: %s", e.Op, e.Status, truncate(e.Body, 512))
}

// truncate bounds a response body for error messages and logs.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func success(status int) bool {
	return status >= 200 && status < 300
}
