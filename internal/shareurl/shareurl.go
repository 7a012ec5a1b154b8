// Package shareurl encodes a search into a shareable URL and reads it back.
//
// The URL carries the raw query in "q", the editor mode in "mode" and the
// format version in "v". The older "query" parameter is still read.
package shareurl

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

const (
	// Version is the current URL format version.
	Version = "1"
	// MaxURLLength is the longest URL Encode produces.
	MaxURLLength = 2000
	// MaxQueryLength is the longest raw query Decode accepts.
	MaxQueryLength = 1000
)

const (
	ModeVisual = "visual"
	ModeRaw    = "raw"
)

const (
	paramQuery       = "q"
	paramLegacyQuery = "query"
	paramMode        = "mode"
	paramVersion     = "v"
)

var (
	ErrURLTooLong   = errors.New("shareurl: url exceeds maximum length")
	ErrQueryTooLong = errors.New("shareurl: query exceeds maximum length")
	ErrInvalidMode  = errors.New("shareurl: invalid mode")
)

// State is the search carried by a URL.
type State struct {
	Query   string `json:"query"`
	Mode    string `json:"mode"`
	Version string `json:"version,omitempty"`
}

// Compatible reports whether the state was written by this URL version.
// States without a version are treated as current.
func (s State) Compatible() bool {
	return s.Version == "" || s.Version == Version
}

func validMode(m string) bool {
	return m == ModeVisual || m == ModeRaw
}

// Encode returns base with the search parameters of s set. Other query
// parameters on base are kept. A blank query clears the search parameters
// instead.
func Encode(base string, s State) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	mode := s.Mode
	if mode == "" {
		mode = ModeVisual
	}
	if !validMode(mode) {
		return "", fmt.Errorf("%w %q", ErrInvalidMode, s.Mode)
	}

	params := u.Query()
	clearParams(params)
	if strings.TrimSpace(s.Query) != "" {
		params.Set(paramQuery, s.Query)
		params.Set(paramMode, mode)
		params.Set(paramVersion, Version)
	}
	u.RawQuery = params.Encode()

	out := u.String()
	if len(out) > MaxURLLength {
		return "", fmt.Errorf("%w: %d > %d", ErrURLTooLong, len(out), MaxURLLength)
	}
	return out, nil
}

// Decode reads the search from a URL or a bare query string. ok is false
// when no query parameter is present. A version mismatch is logged and
// the state still returned; check State.Compatible.
func Decode(raw string) (s State, ok bool, err error) {
	params, err := queryParams(raw)
	if err != nil {
		return State{}, false, err
	}

	q := params.Get(paramQuery)
	if q == "" {
		q = params.Get(paramLegacyQuery)
	}
	if q == "" {
		return State{}, false, nil
	}
	if len(q) > MaxQueryLength {
		return State{}, false, fmt.Errorf("%w: %d > %d", ErrQueryTooLong, len(q), MaxQueryLength)
	}

	s = State{Query: q, Mode: params.Get(paramMode), Version: params.Get(paramVersion)}
	if s.Mode == "" {
		s.Mode = ModeVisual
	}
	if !validMode(s.Mode) {
		return State{}, false, fmt.Errorf("%w %q", ErrInvalidMode, s.Mode)
	}
	if !s.Compatible() {
		slog.Warn("shared url version may not be fully compatible", "version", s.Version, "current", Version)
	}
	return s, true, nil
}

// HasSearch reports whether raw carries a query parameter.
func HasSearch(raw string) bool {
	params, err := queryParams(raw)
	if err != nil {
		return false
	}
	return params.Get(paramQuery) != "" || params.Get(paramLegacyQuery) != ""
}

// Clear returns raw with every search parameter removed.
func Clear(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	params := u.Query()
	clearParams(params)
	u.RawQuery = params.Encode()
	return u.String(), nil
}

func clearParams(params url.Values) {
	params.Del(paramQuery)
	params.Del(paramMode)
	params.Del(paramVersion)
	params.Del(paramLegacyQuery)
}

// queryParams accepts a full URL, a "?a=b" string or a bare "a=b" string.
func queryParams(raw string) (url.Values, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "?") && !strings.Contains(raw, "://") {
		v, err := url.ParseQuery(raw)
		if err != nil {
			return nil, fmt.Errorf("parse query string: %w", err)
		}
		return v, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	v, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("parse query string: %w", err)
	}
	return v, nil
}
