package wrappers

import (
	"net/http"

	json "github.com/goccy/go-json"
)

// StatusHandler returns an [http.Handler] that reports the status of every
// stack registered with reg as JSON. The response code is 503 while any
// stack is saturated and 200 otherwise.
func StatusHandler(reg *Registry) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		statuses := reg.Statuses()

		code := http.StatusOK

		for _, st := range statuses {
			if st.Saturated() {
				code = http.StatusServiceUnavailable
				break
			}
		}

		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(code)
		_ = json.NewEncoder(writer).Encode(struct {
			Stacks []StackStatus `json:"stacks"`
		}{Stacks: statuses})
	})
}
