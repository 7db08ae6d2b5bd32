package domain

import "errors"

// Error taxonomy shared across the application.
//
// ErrNoData means an external source returned empty or unparseable data.
// Callers substitute a neutral factor and carry on.
//
// ErrRateLimited means a vendor signalled a rate limit (or the local token
// bucket blocked past its deadline). Logged, then treated like ErrNoData.
//
// ErrBadInput covers malformed symbols and missing required configuration.
//
// ErrInvariant flags internal corruption (open position with negative
// quantity, unreadable cache row). Never swallowed silently.
var (
	ErrNoData      = errors.New("no data available")
	ErrRateLimited = errors.New("rate limited")
	ErrBadInput    = errors.New("bad input")
	ErrInvariant   = errors.New("internal invariant violation")
)
