package fetch

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrorKind separates faults caused by the caller from faults of the origin.
type ErrorKind int

const (
	// KindClient means the request itself was unusable (bad URL, bad redirect target).
	KindClient ErrorKind = iota
	// KindUpstream means the origin failed, refused the range, or redirected too often.
	KindUpstream
)

func (k ErrorKind) String() string {
	if k == KindClient {
		return "client_error"
	}
	return "upstream_error"
}

// Error is a fetch failure. No bytes are ever returned alongside it. Its
// message reaches clients and logs, so it never carries a query string,
// userinfo or fragment of the source URL.
type Error struct {
	Kind   ErrorKind
	URL    string // source URL reduced by displayURL
	Status int    // origin status code, zero when no response was received
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		cause := e.Err
		// net/http and url.Parse quote the full URL in their errors.
		var urlErr *url.Error
		if errors.As(cause, &urlErr) {
			cause = urlErr.Err
		}
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, msg, cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus is the status the gateway answers with for this failure.
func (e *Error) HTTPStatus() int {
	if e.Kind == KindClient {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func clientError(rawURL, msg string, err error) *Error {
	return &Error{Kind: KindClient, URL: displayURL(rawURL), Msg: msg, Err: err}
}

func upstreamError(rawURL string, status int, msg string, err error) *Error {
	return &Error{Kind: KindUpstream, URL: displayURL(rawURL), Status: status, Msg: msg, Err: err}
}

// displayURL keeps scheme, host and path of rawURL. Signed URLs carry their
// token in the query.
func displayURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "(invalid url)"
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path, RawPath: u.RawPath, Opaque: u.Opaque}).String()
}
