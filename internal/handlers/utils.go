package handlers

import (
	"net/http"
	"strings"

	"media-gateway/internal/command"
	"media-gateway/internal/gateway"
)

// writeJSON writes v with a 200 status.
func writeJSON(w http.ResponseWriter, v interface{}) {
	gateway.WriteJSON(w, http.StatusOK, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	gateway.WriteError(w, statusCode, message)
}

// bearerToken extracts the credential from an Authorization: Bearer header.
// Any other scheme is ignored.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// parseRequest builds a transform request from the query string and headers.
// The source is not checked here; command.Build rejects a missing url.
func parseRequest(r *http.Request, kind command.Kind) (command.Request, error) {
	q := r.URL.Query()
	params, err := command.ParseParams(q)
	if err != nil {
		return command.Request{}, err
	}
	return command.Request{
		Kind:       kind,
		Source:     strings.TrimSpace(q.Get("url")),
		Credential: bearerToken(r),
		Params:     params,
	}, nil
}

// thumbKind picks the thumbnail variant from the parameters present.
func thumbKind(p command.Params) command.Kind {
	switch {
	case p.Watermark != "":
		return command.KindWatermarkedThumbnail
	case p.Scale != nil:
		return command.KindScaledThumbnail
	default:
		return command.KindThumbnail
	}
}
