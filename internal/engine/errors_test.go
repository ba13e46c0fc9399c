package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
)

// jsonRPCError mimics a provider error carrying a JSON-RPC code.
type jsonRPCError struct {
	code int
	msg  string
}

func (e *jsonRPCError) Error() string  { return e.msg }
func (e *jsonRPCError) ErrorCode() int { return e.code }

func TestClassify_StructuredErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnclassified},
		{"deadline", context.DeadlineExceeded, KindTransient},
		{"wrapped deadline", fmt.Errorf("post failed: %w", context.DeadlineExceeded), KindTransient},
		{"dns", &net.DNSError{Err: "no such host", Name: "rpc.example.org"}, KindTransient},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("unreachable")}, KindTransient},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), KindTransient},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), KindTransient},
		{"unexpected eof", io.ErrUnexpectedEOF, KindTransient},
		{"http 407", rpc.HTTPError{StatusCode: 407, Status: "407 Proxy Authentication Required"}, KindProxyAuth},
		{"http 429", rpc.HTTPError{StatusCode: 429, Status: "429 Too Many Requests"}, KindTransient},
		{"http 502", rpc.HTTPError{StatusCode: 502, Status: "502 Bad Gateway"}, KindTransient},
		{"rpc rate limit code", &jsonRPCError{code: -32005, msg: "request quota exhausted"}, KindTransient},
		{"unknown", errors.New("execution reverted: not eligible"), KindUnclassified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err), "error: %v", tc.err)
		})
	}
}

func TestClassify_MessagePhrases(t *testing.T) {
	cases := []struct {
		msg  string
		want ErrorKind
	}{
		{"429 Too Many Requests: slow down", KindTransient},
		{"daily compute units exceeded", KindTransient},
		{"Internal Server Error", KindTransient},
		{"unexpected token < in JSON at position 0", KindTransient},
		{"Proxy Authentication Required", KindProxyAuth},
		{"nonce too low: next nonce 42, tx nonce 41", KindNonceTooLow},
		{"insufficient funds for gas * price + value", KindInsufficientFunds},
		{"max fee per gas less than block base fee", KindFeeTooLow},
		{"tx fee cap less than block base fee", KindFeeTooLow},
		{"transaction underpriced", KindFeeTooLow},
		{"execution reverted", KindUnclassified},
	}
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(errors.New(tc.msg)))
		})
	}
}

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "transient", KindTransient.String())
	assert.Equal(t, "proxy_auth", KindProxyAuth.String())
	assert.Equal(t, "nonce_too_low", KindNonceTooLow.String())
	assert.Equal(t, "insufficient_funds", KindInsufficientFunds.String())
	assert.Equal(t, "fee_too_low", KindFeeTooLow.String())
	assert.Equal(t, "unclassified", KindUnclassified.String())
}

func TestFatal_WrapsAndUnwraps(t *testing.T) {
	assert.NoError(t, Fatal(nil))

	cause := errors.New("boom")
	err := Fatal(cause)
	var fatal *FatalError
	assert.ErrorAs(t, err, &fatal)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "fatal: boom")
}

func TestClassifiedError_Unwrap(t *testing.T) {
	cause := errors.New("insufficient funds for transfer")
	err := &ClassifiedError{Kind: KindInsufficientFunds, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insufficient_funds")
}
