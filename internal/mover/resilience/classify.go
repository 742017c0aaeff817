package resilience

import (
	"context"
	"errors"
	"net"
	"strings"

	moverrors "github.com/f5devops/xc-ns-mover/internal/mover/errors"
)

// classifyError labels an error for metrics, mirroring the teacher's
// error_classifier.go categories.
func classifyError(err error) string {
	if err == nil {
		return "none"
	}

	if errors.Is(err, context.Canceled) {
		return "context_cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "context_deadline"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network"
	}

	if k, ok := moverrors.KindOf(err); ok {
		switch k {
		case moverrors.KindTransport:
			return "transport"
		case moverrors.KindConflict:
			return "rate_limit"
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"):
		return "network"
	case strings.Contains(msg, "too many requests"), strings.Contains(msg, "429"):
		return "rate_limit"
	}

	return "unknown"
}

// TransportErrorChecker treats *moverrors.Error of KindTransport, and raw
// network timeouts/resets, as retryable. Everything else (validation,
// authorization, conflict, capability) is not.
type TransportErrorChecker struct{}

func (TransportErrorChecker) IsRetryable(err error) bool {
	if k, ok := moverrors.KindOf(err); ok {
		return k == moverrors.KindTransport
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() || dnsErr.Timeout()
	}
	return false
}
