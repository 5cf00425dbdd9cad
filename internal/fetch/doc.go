// Package fetch performs ranged, credential-aware prefix downloads of remote
// media so the transcoder can sniff a source without fetching all of it.
//
// Redirects are never followed automatically. A single hop is followed by
// hand, and the Authorization header is dropped before the second request
// so a bearer token is never sent to a redirect target.
package fetch
