package stream

import "errors"

// ErrMalformedPayload marks a stream payload that could not be decoded and
// was skipped. The stream goes on after it.
var ErrMalformedPayload = errors.New("malformed stream payload")
