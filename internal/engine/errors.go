package engine

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/rpc"
)

// ErrorKind buckets remote-call failures into the retry policy classes the
// invoker and scheduler act on.
type ErrorKind int

const (
	// KindUnclassified propagates to the caller unmodified and is fatal by
	// default. The scheduler may still recognize KindFeeTooLow inside it.
	KindUnclassified ErrorKind = iota
	// KindTransient rotates the endpoint and retries indefinitely.
	KindTransient
	// KindProxyAuth aborts the call and surfaces as an account-level error.
	KindProxyAuth
	// KindNonceTooLow retries the identical call without rotating: another
	// in-flight write from the same account advanced the sequence number.
	KindNonceTooLow
	// KindInsufficientFunds is an account-level error, never retried.
	KindInsufficientFunds
	// KindFeeTooLow means the ambient fee setting is stale; the scheduler
	// escalation wrapper refreshes the fee and replays the iteration.
	KindFeeTooLow
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindProxyAuth:
		return "proxy_auth"
	case KindNonceTooLow:
		return "nonce_too_low"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindFeeTooLow:
		return "fee_too_low"
	default:
		return "unclassified"
	}
}

// ErrEmptyPool is returned when an EndpointPool is constructed or queried
// with zero endpoints.
var ErrEmptyPool = errors.New("endpoint pool is empty")

// FatalError marks an error as non-recoverable for the whole batch run.
// BatchRunner aborts on it instead of recording an account-level result.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "fatal: " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps err so that a batch run stops instead of isolating it.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// transientPhrases is a compatibility shim for providers that only signal
// overload in free text. Structured checks in Classify run first; this table
// is kept for parity with upstream gateways and is flagged for removal once
// every provider in use returns proper codes.
var transientPhrases = []string{
	"too many requests",
	"rate limit",
	"exceeded the quota",
	"compute units",
	"throughput",
	"timed out",
	"timeout",
	"connection reset",
	"reset by peer",
	"forcibly closed",
	"broken pipe",
	"internal server error",
	"we can't execute this request",
	"unexpected token",
	"no such host",
	"connection refused",
	"ssl",
	"tls handshake",
}

// Classify maps a remote-call error into the retry taxonomy. Structured
// error types and status codes are checked before any message matching.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnclassified
	}

	// Hard per-call timeout.
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	// Transport-level failures.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindTransient
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindTransient
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return KindTransient
	}
	var recErr tls.RecordHeaderError
	if errors.As(err, &recErr) {
		return KindTransient
	}

	// Malformed response body.
	var synErr *json.SyntaxError
	if errors.As(err, &synErr) {
		return KindTransient
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return KindTransient
	}

	// HTTP status from the RPC gateway.
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == 407:
			return KindProxyAuth
		case httpErr.StatusCode == 429 || httpErr.StatusCode >= 500:
			return KindTransient
		}
	}

	// JSON-RPC error codes. -32005 is the de facto rate-limit code.
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case -32005:
			return KindTransient
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "proxy authentication required"):
		return KindProxyAuth
	case strings.Contains(msg, "nonce too low"):
		return KindNonceTooLow
	case strings.Contains(msg, "insufficient funds"):
		return KindInsufficientFunds
	case strings.Contains(msg, "max fee per gas less"),
		strings.Contains(msg, "fee cap less than"),
		strings.Contains(msg, "transaction underpriced"):
		return KindFeeTooLow
	}
	for _, phrase := range transientPhrases {
		if strings.Contains(msg, phrase) {
			return KindTransient
		}
	}

	return KindUnclassified
}
