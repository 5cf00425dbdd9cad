package command

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidParameter is matched by every ParamError.
var ErrInvalidParameter = errors.New("invalid parameter")

// ParamError reports a transform parameter that is missing or cannot be coerced.
type ParamError struct {
	Param  string
	Value  string
	Reason string
}

func (e *ParamError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Param, e.Reason)
	}
	return fmt.Sprintf("%s=%q: %s", e.Param, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidParameter) true for any ParamError.
func (e *ParamError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// Params holds the optional, declarative transform parameters.
// Zero width/height mean "preserve the original dimension"; nil floats take
// the per-kind default.
type Params struct {
	Width     int
	Height    int
	Watermark string
	Alpha     *float64
	Scale     *float64
	Offset    *float64
	Seek      string
}

// Documented parameter defaults.
const (
	DefaultAlpha           = 0.5
	DefaultScale           = 0.20
	DefaultWatermarkOffset = 0.05
	DefaultPreviewOffset   = 0.1

	// LegacyFrameSeek is the fixed offset used by the /video frame grab.
	LegacyFrameSeek = "00:00:03"
)

// ParseParams coerces query-string values into Params. Empty values are
// treated as absent.
func ParseParams(q url.Values) (Params, error) {
	var p Params
	var err error

	if p.Width, err = parseDimension(q, "width"); err != nil {
		return Params{}, err
	}
	if p.Height, err = parseDimension(q, "height"); err != nil {
		return Params{}, err
	}
	if p.Alpha, err = parseFraction(q, "alpha"); err != nil {
		return Params{}, err
	}
	if p.Scale, err = parseFraction(q, "scale"); err != nil {
		return Params{}, err
	}
	if p.Offset, err = parseFraction(q, "offset"); err != nil {
		return Params{}, err
	}

	p.Watermark = strings.TrimSpace(q.Get("watermark"))
	p.Seek = strings.TrimSpace(q.Get("ss"))

	return p, nil
}

func parseDimension(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &ParamError{Param: key, Value: raw, Reason: "must be a non-negative integer"}
	}
	return n, nil
}

func parseFraction(q url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &ParamError{Param: key, Value: raw, Reason: "must be a number"}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &ParamError{Param: key, Value: raw, Reason: "must be a finite number"}
	}
	return &f, nil
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
