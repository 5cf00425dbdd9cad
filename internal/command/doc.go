// Package command builds argument vectors for the external transcoding tools.
//
// Build is a pure function from a Request (transform kind, source and
// declarative parameters) to a Command (tool and ordered arguments). The
// filter graphs handed to ffmpeg are assembled from a small structured
// representation (Graph, Chain, Filter) and serialized to the tool's textual
// syntax only when the arguments are rendered, so quoting rules live in one
// place.
//
// Defaults:
//   - width/height: preserve the original dimension
//   - alpha: 0.5, scale: 0.20
//   - offset: 0.05 for watermarked thumbnails, 0.1 for preview clips
package command
