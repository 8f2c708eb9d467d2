// Package gateway defines the contract of the remote task service and the
// errors its implementations report.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/harrisonrobin/taskbox/pkg/model"
)

// Gateway performs durable task operations against a remote service. Every
// call carries the session credential; implementations return
// ErrPreconditionFailed before any network attempt when none is available.
type Gateway interface {
	List(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, task model.Task) error
	Update(ctx context.Context, id string, patch model.Patch) error
	Delete(ctx context.Context, id string) error
	SetFavorite(ctx context.Context, id string, favorite bool) error
	SetCompleted(ctx context.Context, id string, completed bool) error
}

// ErrPreconditionFailed means no credential was available for the call.
var ErrPreconditionFailed = errors.New("no authentication credential available")

// TransportError reports that the remote service could not be reached.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteRejectedError reports a failure status returned by the remote service.
type RemoteRejectedError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RemoteRejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: rejected by server (status %d)", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: rejected by server (status %d): %s", e.Op, e.StatusCode, e.Message)
}

// IsTransport reports whether err is, or wraps, a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRejected reports whether err is, or wraps, a RemoteRejectedError.
func IsRejected(err error) bool {
	var re *RemoteRejectedError
	return errors.As(err, &re)
}
