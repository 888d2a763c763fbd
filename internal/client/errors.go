package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotAuthenticated is returned before any request is sent when no
// credential is available.
var ErrNotAuthenticated = errors.New("not authenticated")

// Op names one of the remote operations.
type Op string

const (
	OpListPages   Op = "list pages"
	OpGetPage     Op = "get page"
	OpCreatePage  Op = "create page"
	OpUpdatePage  Op = "update page"
	OpDeletePage  Op = "delete page"
	OpCreateBlock Op = "create block"
	OpUpdateBlock Op = "update block"
	OpDeleteBlock Op = "delete block"
)

// opMessages are the human-readable messages surfaced for non-2xx responses.
// Server detail is kept on Error.Detail for logs, never shown.
var opMessages = map[Op]string{
	OpListPages:   "Failed to load pages",
	OpGetPage:     "Page not found",
	OpCreatePage:  "Failed to create page",
	OpUpdatePage:  "Failed to save page",
	OpDeletePage:  "Failed to delete page",
	OpCreateBlock: "Failed to create block",
	OpUpdateBlock: "Failed to save",
	OpDeleteBlock: "Failed to delete",
}

// Error is a failed remote operation: either a non-2xx status or a
// transport failure (Status 0).
type Error struct {
	Op     Op
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return opMessages[e.Op]
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the request may succeed: transport
// failures, 5xx and 429.
func (e *Error) Retryable() bool {
	return e.Status == 0 || e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// IsRetryable reports whether err is a retryable *Error.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusNotFound
}

func statusError(op Op, status int, detail string) *Error {
	return &Error{Op: op, Status: status, Detail: detail}
}

func transportError(op Op, err error) *Error {
	return &Error{Op: op, Err: fmt.Errorf("%s: %w", op, err)}
}
