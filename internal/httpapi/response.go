package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/nonibytes/cssapi/internal/eval"
)

// writeJSON marshals a plain Go value as the JSON response body. Used for
// adapter-level errors (404, malformed body) that never reach the
// evaluator.
func writeJSON(w http.ResponseWriter, status int, body map[string]any) int {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
	return status
}

// writeJSONValue writes an evaluated Value as a json(...) response body.
// HEAD requests suppress the body but still report the route's resolved
// status and Content-Type (spec.md §4.5).
func writeJSONValue(w http.ResponseWriter, status int, v eval.Value, method string) int {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if method == http.MethodHead {
		return status
	}
	_ = json.NewEncoder(w).Encode(v.Interface())
	return status
}

// writeHTML writes an evaluated Value as an html(...) response body.
// Non-string values are coerced to their textual form (spec.md §4.5):
// numbers/booleans render as text, null renders empty, and arrays/objects
// fall back to their JSON encoding.
func writeHTML(w http.ResponseWriter, status int, v eval.Value, method string) int {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if method == http.MethodHead {
		return status
	}
	_, _ = w.Write([]byte(v.Text()))
	return status
}
