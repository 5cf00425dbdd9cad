package handlers

import (
	"net/http"

	"media-gateway/internal/command"
	"media-gateway/internal/gateway"
	"media-gateway/internal/transcoder"
)

// Thumbnail renders a single JPEG frame.
// GET /thumb?url=&width=&height=&watermark=&alpha=&scale=&offset=&ss=
func (h *Handlers) Thumbnail(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r, command.KindThumbnail)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Kind = thumbKind(req.Params)

	h.gateway.Execute(w, r, gateway.Job{Request: req, RequireOutput: true})
}

// VideoFrame grabs the frame three seconds in.
// GET /video?url=
func (h *Handlers) VideoFrame(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r, command.KindThumbnail)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Params.Seek = command.LegacyFrameSeek

	h.gateway.Execute(w, r, gateway.Job{Request: req, RequireOutput: true})
}

// Preview streams a short fast-forward MP4 clip.
// GET /preview?url=&width=&height=&watermark=&alpha=&scale=&offset=
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, command.KindPreviewClip)
}

// WebM streams the source re-encoded to WebM.
// GET /webm?url=&width=&height=
func (h *Handlers) WebM(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, command.KindRemuxStream)
}

// Meta streams ffprobe's JSON description of the source.
// GET /meta?url=
func (h *Handlers) Meta(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, command.KindProbe)
}

func (h *Handlers) stream(w http.ResponseWriter, r *http.Request, kind command.Kind) {
	req, err := parseRequest(r, kind)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.gateway.Execute(w, r, gateway.Job{Request: req, Stream: true})
}

// VersionResponse carries the raw output of ffmpeg -version.
type VersionResponse struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// GetVersion returns the tool version.
// GET /version
func (h *Handlers) GetVersion(w http.ResponseWriter, r *http.Request) {
	h.gateway.Execute(w, r, gateway.Job{
		Request: command.Request{Kind: command.KindToolVersion},
		OnSuccess: func(w http.ResponseWriter, stdout []byte, res *transcoder.ExitResult) {
			var stderr []byte
			if res != nil {
				stderr = res.Stderr
			}
			writeJSON(w, VersionResponse{Stdout: string(stdout), Stderr: string(stderr)})
		},
	})
}
