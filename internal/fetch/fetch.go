// Package fetch resolves sample locators to raw bytes.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// MaxSize caps how many bytes a single sample may occupy.
const MaxSize = 10 << 20

var (
	ErrNotFound          = errors.New("sample source not found")
	ErrTooLarge          = errors.New("sample exceeds maximum size")
	ErrUnsupportedScheme = errors.New("unsupported locator scheme")
)

type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// Router dispatches a locator to the fetcher registered for its scheme.
// Locators without a scheme are treated as "file".
type Router struct {
	fetchers map[string]Fetcher
}

func NewRouter() *Router {
	return &Router{fetchers: make(map[string]Fetcher)}
}

// Handle registers f for each scheme, replacing any earlier registration.
func (r *Router) Handle(f Fetcher, schemes ...string) *Router {
	for _, s := range schemes {
		r.fetchers[strings.ToLower(s)] = f
	}
	return r
}

func (r *Router) Fetch(ctx context.Context, locator string) ([]byte, error) {
	scheme, err := Scheme(locator)
	if err != nil {
		return nil, err
	}
	f, ok := r.fetchers[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
	return f.Fetch(ctx, locator)
}

// Supports reports whether a fetcher is registered for the locator.
func (r *Router) Supports(locator string) bool {
	scheme, err := Scheme(locator)
	if err != nil {
		return false
	}
	_, ok := r.fetchers[scheme]
	return ok
}

// Scheme returns the lowercased scheme of locator, "file" when absent.
func Scheme(locator string) (string, error) {
	if strings.TrimSpace(locator) == "" {
		return "", errors.New("empty locator")
	}
	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("parse locator: %w", err)
	}
	// single letters are Windows drive letters, not schemes
	if u.Scheme == "" || len(u.Scheme) == 1 {
		return "file", nil
	}
	return strings.ToLower(u.Scheme), nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}
