// Package ragerr defines the failure kinds raised by the retrieval pipeline.
//
// Every failure carries one of the sentinel kinds below so callers can branch
// with errors.Is, and the upstream HTTP status and body when the failure came
// from a remote call.
package ragerr

import (
	"errors"
	"fmt"
)

var (
	ErrEmbedding   = errors.New("embedding failure")
	ErrStoreInit   = errors.New("vector store init failure")
	ErrStoreWrite  = errors.New("vector store write failure")
	ErrStoreQuery  = errors.New("vector store query failure")
	ErrStoreDelete = errors.New("vector store delete failure")
	ErrCompletion  = errors.New("completion failure")
)

// ErrNoContent is the cause of a CompletionFailure whose response carried no
// answer text.
var ErrNoContent = errors.New("response has no content")

// Error is a pipeline failure of a given Kind.
type Error struct {
	Kind       error  // one of the Err* sentinels
	Op         string // the operation that failed, e.g. "pinecone upsert"
	StatusCode int    // upstream HTTP status, 0 when not applicable
	Body       string // upstream response body, possibly truncated
	Err        error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New wraps err with the given kind. A nil err still produces a failure.
func New(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// FromStatus builds a failure for a non-2xx upstream response.
func FromStatus(kind error, op string, status int, body []byte) *Error {
	return &Error{Kind: kind, Op: op, StatusCode: status, Body: truncate(string(body), maxBody)}
}

// Ensure returns err unchanged if it already carries kind, otherwise wraps it.
func Ensure(kind error, op string, err error) error {
	if err == nil || errors.Is(err, kind) {
		return err
	}
	return New(kind, op, err)
}

// StatusCode returns the upstream status of the first *Error in err's chain.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

const maxBody = 2048

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
