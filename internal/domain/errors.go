package domain

import "errors"

// ErrCallNotPermitted is returned by the circuit breaker adapter when the
// breaker is open (or the half-open trial budget is spent). The ingestion
// flush loop reacts by pausing the stream, sleeping, and retrying the same
// batch; the batch is never dropped.
var ErrCallNotPermitted = errors.New("call not permitted: persistence circuit open")
