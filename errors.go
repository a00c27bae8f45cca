package identity

import (
	"context"
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeResolveTimeout marks the synthetic error produced when a
	// profile read loses the race against its deadline.
	TextCodeResolveTimeout = "TIMEOUT"
	textCodeResolvePanic   = "RESOLVER_PANIC"
	textCodeSignUpRejected = "SIGNUP_REJECTED"
	textCodeSignInRejected = "SIGNIN_REJECTED"
)

// ErrStoreClosed is returned by mutations invoked after Close.
var ErrStoreClosed = goerrors.New("identity store is closed", goerrors.CategoryOperation).
	WithTextCode("STORE_CLOSED")

// ErrProfileResolveTimeout is the synthetic result for a profile read that
// did not settle before the resolver deadline.
var ErrProfileResolveTimeout = goerrors.New("profile query timed out", goerrors.CategoryOperation).
	WithTextCode(TextCodeResolveTimeout)

// transientMarkers match provider/storage failures presumed recoverable by
// retry. Substring matching mirrors what the hosted clients actually emit;
// structured codes are checked first.
var transientMarkers = []string{"timeout", "network", "fetch failed"}

// IsTransientResolveError classifies a profile resolution failure. Transient
// failures retain the last known profile; everything else clears it.
func IsTransientResolveError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == TextCodeResolveTimeout {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
