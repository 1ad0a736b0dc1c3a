package mock

import "github.com/prdlabs/prdgen"

// Interface compliance checks.
var (
	_ prdgen.TokenStream   = (*TokenStream)(nil)
	_ prdgen.SectionStream = (*SectionStream)(nil)
)

// TokenStream is a test double for prdgen.TokenStream.
// Set the function fields for the methods you need. NextFn panics when nil
// to catch missing setup. The other methods are nil-safe (zero values,
// no-op Close) because test code commonly calls defer stream.Close() and
// rarely needs custom behavior for them.
type TokenStream struct {
	NextFn  func() (string, error)
	StateFn func() prdgen.StreamState
	TextFn  func() string
	UsageFn func() prdgen.Usage
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *TokenStream) Next() (string, error) {
	return s.NextFn()
}

// State delegates to StateFn. Returns StreamStateNew when StateFn is nil.
func (s *TokenStream) State() prdgen.StreamState {
	if s.StateFn == nil {
		return prdgen.StreamStateNew
	}
	return s.StateFn()
}

// Text delegates to TextFn. Returns "" when TextFn is nil.
func (s *TokenStream) Text() string {
	if s.TextFn == nil {
		return ""
	}
	return s.TextFn()
}

// Usage delegates to UsageFn. Returns the zero value when UsageFn is nil.
func (s *TokenStream) Usage() prdgen.Usage {
	if s.UsageFn == nil {
		return prdgen.Usage{}
	}
	return s.UsageFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *TokenStream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// SectionStream is a test double for prdgen.SectionStream.
// NextFn panics when nil; Close is nil-safe.
type SectionStream struct {
	NextFn  func() (prdgen.SectionEvent, error)
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *SectionStream) Next() (prdgen.SectionEvent, error) {
	return s.NextFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *SectionStream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}
