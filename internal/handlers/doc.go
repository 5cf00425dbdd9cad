// Package handlers provides the HTTP surface of the media gateway.
//
// It includes handlers for:
//   - Transforms: /thumb, /video, /preview, /webm and /meta
//   - Tool information: /version and /buildinfo
//   - Health checks: /health, /healthz, /livez and /readyz
//   - JSON 404 and 405 responses for the router
//
// Transform handlers only parse the query string and the Authorization
// header; admission, fetching, process control and status mapping are done
// by the gateway package.
package handlers
