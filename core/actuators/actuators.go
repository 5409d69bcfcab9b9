// Package actuators defines the command-and-status boundary shared by every
// controllable device: submit a command and get a ticket, poll the ticket,
// abort it. Gateways built on top of this contract enforce the single
// in-flight command discipline; drivers only execute.
package actuators

import (
	"context"
	"errors"
	"time"
)

type Command struct {
	Name string
	Args map[string]any
}

type Ticket string

// Result is the terminal outcome of a submitted command.
type Result struct {
	Ticket   Ticket
	Output   string
	Err      error
	EndedAt  time.Time
	Duration time.Duration
}

type Status struct {
	Busy          bool
	LastResult    *Result
	LastUpdatedAt time.Time
}

// Driver executes commands against one physical actuator. Submit must not
// block on command completion; completion is observed through Poll.
type Driver interface {
	Submit(ctx context.Context, cmd Command) (Ticket, error)
	// Poll returns nil while the command is still executing.
	Poll(ctx context.Context, ticket Ticket) (*Result, error)
	Abort(ctx context.Context, ticket Ticket) error
	Close() error
}

// TransientError wraps failures expected to succeed on retry without
// operator intervention.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

var ErrUnknownTicket = errors.New("unknown ticket")
