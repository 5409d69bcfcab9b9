package actuators

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Tracker hands out tickets for background commands and retains their
// results until polled. Drivers embed one so Submit can return immediately.
type Tracker struct {
	prefix string

	idMu   sync.Mutex
	nextID uint64

	tickets sync.Map
}

type trackedCommand struct {
	cancel context.CancelFunc

	mu     sync.Mutex
	result *Result
}

func NewTracker(prefix string) *Tracker {
	return &Tracker{prefix: prefix}
}

// Begin runs the command in the background. The run function receives a
// context detached from the caller's cancellation; Abort cancels it.
func (t *Tracker) Begin(ctx context.Context, run func(ctx context.Context) (string, error)) Ticket {
	t.idMu.Lock()
	t.nextID++
	ticket := Ticket(fmt.Sprintf("%s-%d", t.prefix, t.nextID))
	t.idMu.Unlock()

	cmdCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	state := &trackedCommand{cancel: cancel}
	t.tickets.Store(ticket, state)

	go func() {
		defer cancel()
		startedAt := time.Now()
		output, err := run(cmdCtx)

		state.mu.Lock()
		state.result = &Result{
			Ticket:   ticket,
			Output:   output,
			Err:      err,
			EndedAt:  time.Now(),
			Duration: time.Since(startedAt),
		}
		state.mu.Unlock()
	}()

	return ticket
}

// Poll returns nil while the command still runs. A completed ticket is
// forgotten once its result is handed out.
func (t *Tracker) Poll(ticket Ticket) (*Result, error) {
	value, ok := t.tickets.Load(ticket)
	if !ok {
		return nil, ErrUnknownTicket
	}
	state := value.(*trackedCommand)
	state.mu.Lock()
	result := state.result
	state.mu.Unlock()
	if result != nil {
		t.tickets.Delete(ticket)
	}
	return result, nil
}

func (t *Tracker) Abort(ticket Ticket) error {
	value, ok := t.tickets.Load(ticket)
	if !ok {
		return ErrUnknownTicket
	}
	value.(*trackedCommand).cancel()
	return nil
}
