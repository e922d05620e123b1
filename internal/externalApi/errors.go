package externalApi

import "errors"

var (
	ErrMalformedFeed  = errors.New("error malformed feed")
	ErrEmptyQuote     = errors.New("error empty quote")
	ErrNetworkFailure = errors.New("error network failure")
)
