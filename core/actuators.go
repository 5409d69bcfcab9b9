package orchestration

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fortyoneai/omni-core/core/actuators"
	"github.com/fortyoneai/omni-core/core/events"
)

const (
	defaultMaxPending   = 4
	defaultPollInterval = 50 * time.Millisecond
)

// ActuatorState is the externally visible status of one actuator gateway.
type ActuatorState struct {
	Busy          bool
	Pending       int
	LastResult    *actuators.Result
	LastUpdatedAt time.Time
}

type pendingIntent struct {
	id     string
	intent ActionIntent
}

type inFlightCommand struct {
	id      string
	intent  ActionIntent
	ticket  actuators.Ticket
	retried bool
}

// actuatorGateway enforces the dispatch discipline over a driver: one
// in-flight command, a bounded pending queue in arrival order, one retry
// on transient failure. Completion re-enters the orchestrator as events.
type actuatorGateway struct {
	name         string
	driver       actuators.Driver
	emit         eventEmitter
	maxPending   int
	pollInterval time.Duration

	mu            sync.Mutex
	inFlight      *inFlightCommand
	pending       []pendingIntent
	lastResult    *actuators.Result
	lastUpdatedAt time.Time

	kick      chan struct{}
	closeCh   chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool
}

func newActuatorGateway(name string, driver actuators.Driver, emit eventEmitter) *actuatorGateway {
	return &actuatorGateway{
		name:         name,
		driver:       driver,
		emit:         emit,
		maxPending:   defaultMaxPending,
		pollInterval: defaultPollInterval,
		kick:         make(chan struct{}, 1),
		closeCh:      make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (g *actuatorGateway) isConfigured() bool {
	return g != nil && g.driver != nil
}

func (g *actuatorGateway) start(ctx context.Context) {
	if !g.isConfigured() {
		return
	}
	g.startOnce.Do(func() {
		g.started.Store(true)
		go g.worker(context.WithoutCancel(ctx))
	})
}

func (g *actuatorGateway) close() {
	if !g.isConfigured() {
		return
	}
	g.closeOnce.Do(func() { close(g.closeCh) })
	if !g.started.Load() {
		return
	}
	select {
	case <-g.done:
	case <-time.After(time.Second):
	}
}

// enqueue accepts an intent for execution and returns the gateway ticket
// its completion events will carry. When the pending queue is full the
// newest autonomous intent is evicted first; if nothing can be evicted the
// call fails with ErrActuatorOverloaded.
func (g *actuatorGateway) enqueue(intent ActionIntent) (string, error) {
	if g == nil {
		return "", fmt.Errorf("actuator is not configured")
	}
	if !g.isConfigured() {
		return "", fmt.Errorf("actuator %q is not configured", g.name)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.pending) >= g.maxPending {
		evicted, ok := g.evictLocked(intent.Origin)
		if !ok {
			return "", ErrActuatorOverloaded
		}
		g.emit(events.NewActionFailed(g.name, evicted.id, ErrActuatorOverloaded))
	}

	id := uuid.NewString()
	g.pending = append(g.pending, pendingIntent{id: id, intent: intent})
	g.lastUpdatedAt = time.Now()
	g.signal()
	return id, nil
}

// evictLocked removes the lowest-priority pending intent: the newest
// autonomous one, or nothing when only user intents are queued and the
// incoming intent is autonomous too.
func (g *actuatorGateway) evictLocked(incoming Origin) (pendingIntent, bool) {
	for i := len(g.pending) - 1; i >= 0; i-- {
		if g.pending[i].intent.Origin == OriginAutonomous {
			evicted := g.pending[i]
			g.pending = append(g.pending[:i], g.pending[i+1:]...)
			return evicted, true
		}
	}
	if incoming == OriginAutonomous {
		return pendingIntent{}, false
	}
	evicted := g.pending[0]
	g.pending = g.pending[1:]
	return evicted, true
}

func (g *actuatorGateway) status() ActuatorState {
	g.mu.Lock()
	defer g.mu.Unlock()
	state := ActuatorState{
		Busy:          g.inFlight != nil,
		Pending:       len(g.pending),
		LastUpdatedAt: g.lastUpdatedAt,
	}
	if g.lastResult != nil {
		// Callers own their copy; the gateway's record stays private.
		last := &actuators.Result{}
		_ = copier.Copy(last, g.lastResult)
		state.LastResult = last
	}
	return state
}

// drain aborts the in-flight command and empties the pending queue, used
// on emergency stop.
func (g *actuatorGateway) drain(ctx context.Context) {
	if !g.isConfigured() {
		return
	}
	g.mu.Lock()
	inFlight := g.inFlight
	g.inFlight = nil
	g.pending = nil
	g.lastUpdatedAt = time.Now()
	g.mu.Unlock()

	if inFlight != nil {
		if err := g.driver.Abort(ctx, inFlight.ticket); err != nil {
			logger.Warn("Failed to abort in-flight command", "actuator", g.name, "error", err)
		}
	}
}

func (g *actuatorGateway) signal() {
	select {
	case g.kick <- struct{}{}:
	default:
	}
}

func (g *actuatorGateway) worker(ctx context.Context) {
	defer close(g.done)
	for {
		g.submitNext(ctx)
		g.pollInFlight(ctx)

		g.mu.Lock()
		idle := g.inFlight == nil && len(g.pending) == 0
		g.mu.Unlock()

		if idle {
			select {
			case <-g.closeCh:
				return
			case <-g.kick:
			}
			continue
		}

		select {
		case <-g.closeCh:
			g.drain(ctx)
			return
		case <-time.After(g.pollInterval):
		case <-g.kick:
		}
	}
}

func (g *actuatorGateway) submitNext(ctx context.Context) {
	g.mu.Lock()
	if g.inFlight != nil || len(g.pending) == 0 {
		g.mu.Unlock()
		return
	}
	next := g.pending[0]
	g.pending = g.pending[1:]
	g.mu.Unlock()

	g.dispatch(ctx, next.id, next.intent, false)
}

func (g *actuatorGateway) dispatch(ctx context.Context, id string, intent ActionIntent, retried bool) {
	ctx, span := tracer.Start(ctx, "dispatch actuator command")
	defer span.End()
	span.SetAttributes(
		attribute.String("actuator.name", g.name),
		attribute.String("command.name", intent.Name),
		attribute.Bool("command.retried", retried),
	)

	ticket, err := g.driver.Submit(ctx, actuators.Command{Name: intent.Name, Args: intent.Args})
	if err != nil {
		span.RecordError(err)
		g.mu.Lock()
		g.lastUpdatedAt = time.Now()
		g.mu.Unlock()
		g.emit(events.NewActionFailed(g.name, id, err))
		return
	}

	g.mu.Lock()
	g.inFlight = &inFlightCommand{id: id, intent: intent, ticket: ticket, retried: retried}
	g.lastUpdatedAt = time.Now()
	pending := len(g.pending)
	g.mu.Unlock()

	g.emit(events.NewActionDispatched(g.name, id))
	g.emit(events.NewActuatorStatus(g.name, true, pending))
}

func (g *actuatorGateway) pollInFlight(ctx context.Context) {
	g.mu.Lock()
	inFlight := g.inFlight
	g.mu.Unlock()
	if inFlight == nil {
		return
	}

	result, err := g.driver.Poll(ctx, inFlight.ticket)
	if err != nil {
		g.complete(inFlight, &actuators.Result{Ticket: inFlight.ticket, Err: err})
		return
	}
	if result == nil {
		return
	}

	if result.Err != nil && actuators.IsTransient(result.Err) && !inFlight.retried {
		logger.Info("Retrying command after transient failure",
			"actuator", g.name, "command", inFlight.intent.Name, "error", result.Err)
		g.mu.Lock()
		g.inFlight = nil
		g.mu.Unlock()
		g.dispatch(ctx, inFlight.id, inFlight.intent, true)
		return
	}

	g.complete(inFlight, result)
}

func (g *actuatorGateway) complete(inFlight *inFlightCommand, result *actuators.Result) {
	g.mu.Lock()
	g.inFlight = nil
	g.lastResult = result
	g.lastUpdatedAt = time.Now()
	pending := len(g.pending)
	g.mu.Unlock()

	if result.Err != nil {
		g.emit(events.NewActionFailed(g.name, inFlight.id, result.Err))
	} else {
		g.emit(events.NewActionResult(g.name, inFlight.id, result.Output, nil))
	}
	g.emit(events.NewActuatorStatus(g.name, false, pending))
	g.signal()
}
