package handlers

import (
	"net/http"

	"media-gateway/internal/gateway"
)

// writeJSONStatus writes v as JSON with an explicit status code.
func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	gateway.WriteJSON(w, status, v)
}

// NotFound replaces the router's plain-text 404.
func NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, "not found: "+r.URL.Path, http.StatusNotFound)
	})
}

// MethodNotAllowed replaces the router's plain-text 405.
func MethodNotAllowed() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, "method "+r.Method+" not allowed", http.StatusMethodNotAllowed)
	})
}
