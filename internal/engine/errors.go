package engine

import (
	"context"
	"errors"
	"fmt"

	"intrabot-go/internal/fyers"
)

// errNoData marks a tick that could not proceed because required market
// data was absent; classified as malformed so the tick is skipped.
var errNoData = fmt.Errorf("%w: no data", fyers.ErrBadResponse)

// Kind buckets loop-iteration errors for the recovery policy.
type Kind string

const (
	// KindTransient covers network and broker-side availability failures.
	KindTransient Kind = "transient"
	// KindMalformed covers responses that arrived but could not be used.
	KindMalformed Kind = "malformed"
	// KindFatal covers configuration and authentication failures that no
	// amount of retrying will cure.
	KindFatal Kind = "fatal"
)

// Recovery is what the loop does after an error of a given kind.
type Recovery int

const (
	// RecoveryRetry re-runs the iteration after a bounded backoff.
	RecoveryRetry Recovery = iota
	// RecoverySkip abandons the iteration and waits for the next tick.
	RecoverySkip
	// RecoveryAbort stops the loop and the process.
	RecoveryAbort
)

// Policy maps error kinds to recovery actions. The loop never exits on
// anything but Fatal.
var Policy = map[Kind]Recovery{
	KindTransient: RecoveryRetry,
	KindMalformed: RecoverySkip,
	KindFatal:     RecoveryAbort,
}

// Classify sorts an error into a Kind. Auth failures are fatal, responses
// the broker flagged or that failed to decode are malformed, and everything
// else (timeouts, connection resets, recovered panics) is transient.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, fyers.ErrAuth):
		return KindFatal
	case errors.Is(err, fyers.ErrBadResponse):
		return KindMalformed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	default:
		return KindTransient
	}
}
