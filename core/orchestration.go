// Package orchestration is the control core of the agent: one loop that
// consumes events from the inference stream, the autonomous trigger and the
// actuator gateways over a single bounded queue, drives the session state
// machine, and dispatches actions with a one-in-flight discipline.
package orchestration

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fortyoneai/omni-core/core/events"
	"github.com/fortyoneai/omni-core/core/streams/omni"
)

const (
	actuatorVM     = "vm"
	actuatorAvatar = "avatar"

	eventQueueCapacity   = 32
	defaultShutdownGrace = 2 * time.Second
)

type eventQueueItem struct {
	event    events.Event
	queuedAt time.Time
}

type Orchestrator struct {
	session *session
	ledger  turnLedger

	stream  stream
	memory  memoryGateway
	vm      *actuatorGateway
	avatar  *actuatorGateway
	trigger *autonomousTrigger

	queue   chan eventQueueItem
	stopCh  chan struct{}
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	closeOnce sync.Once
	started   atomic.Bool

	orchestrateOptions OrchestrateOptions
	callbackEmitter    eventEmitter
	baseContext        context.Context
	shutdownGrace      time.Duration

	// Loop-owned turn bookkeeping, only touched by processEvent.
	awaitingAugment bool
	pendingCommit   bool
	pendingAnalysis string
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		session:         newSession(),
		memory:          newMemoryGateway(),
		queue:           make(chan eventQueueItem, eventQueueCapacity),
		stopCh:          make(chan struct{}),
		closeCh:         make(chan struct{}),
		done:            make(chan struct{}),
		callbackEmitter: noopEventEmitter,
		baseContext:     context.Background(),
		shutdownGrace:   defaultShutdownGrace,
	}
	o.trigger = newAutonomousTrigger(o.session.Mode, o.session.lastActivity, o.enqueueFromGateway)

	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Orchestrate connects the stream, starts the gateways, the trigger and
// the control loop, and moves the session out of INIT.
//
// Contract: call Orchestrate at most once per orchestrator instance.
func (o *Orchestrator) Orchestrate(ctx context.Context, opts ...OrchestrateOption) error {
	o.orchestrateOptions = OrchestrateOptions{}
	for _, opt := range opts {
		opt(&o.orchestrateOptions)
	}
	o.callbackEmitter = newCallbackEventEmitter(o.orchestrateOptions)
	o.baseContext = ctx

	o.session.onModeChange = func(from, to Mode) {
		if o.orchestrateOptions.onModeChange != nil {
			o.orchestrateOptions.onModeChange(from, to)
		}
	}

	if err := o.stream.connect(ctx, omni.Callbacks{
		TextCallback:            func(text string) { o.enqueue(events.NewPartialText(text)) },
		InputTranscriptCallback: func(text string) { o.enqueue(events.NewUserTranscript(text)) },
		AudioCallback:           func(audio []byte) { o.enqueue(events.NewAudioFrame(audio)) },
		TurnEndCallback:         func() { o.enqueue(events.NewReplyEnd()) },
		SpeechStartedCallback:   func() { o.enqueue(events.NewUserTurnOpened()) },
		SpeechStoppedCallback:   func() { o.enqueue(events.NewUserTurnEnded()) },
		ErrorCallback:           func(err error) { o.enqueue(events.NewConnectionError(err)) },
		ReconnectedCallback:     func(attempts int) { o.enqueue(events.NewReconnected(attempts)) },
		DroppedCallback:         func(dropped int) { o.enqueue(events.NewChunkDropped(dropped)) },
	}); err != nil {
		return err
	}

	o.vm.start(ctx)
	o.avatar.start(ctx)
	o.trigger.start()

	o.startOnce.Do(func() {
		o.started.Store(true)
		go o.loop()
		go func() {
			select {
			case <-ctx.Done():
				o.Close()
			case <-o.closeCh:
			}
		}()
	})

	if err := o.session.transition(ModeIdle); err != nil {
		logger.Warn("Failed to leave INIT", "error", err)
	}
	return nil
}

func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.trigger.close()
		o.vm.close()
		o.avatar.close()
		o.stream.close()
		close(o.closeCh)
		if o.started.Load() {
			select {
			case <-o.done:
			case <-time.After(o.shutdownGrace):
			}
		}
	})
}

// SendAudio feeds a captured audio chunk into the loop.
func (o *Orchestrator) SendAudio(chunk []byte) {
	o.enqueue(events.NewUserChunk("audio", chunk))
}

// SendVideo feeds a captured video frame into the loop.
func (o *Orchestrator) SendVideo(frame []byte) {
	o.enqueue(events.NewUserChunk("video", frame))
}

// SendText submits a typed prompt, bypassing audio capture.
func (o *Orchestrator) SendText(prompt string) {
	o.enqueue(events.NewUserPrompt(prompt))
}

// OpenInput marks the start of deliberate user input, the keyboard-style
// push-to-talk press.
func (o *Orchestrator) OpenInput() {
	o.enqueue(events.NewOpenInput())
}

// CloseInput marks the end of user input and hands the turn to inference.
func (o *Orchestrator) CloseInput() {
	o.enqueue(events.NewCloseInput())
}

// EmergencyStop silences everything and terminates the session. It cannot
// be blocked by a full event queue.
func (o *Orchestrator) EmergencyStop() {
	o.stopOnce.Do(func() { close(o.stopCh) })
}

func (o *Orchestrator) Mode() Mode {
	return o.session.Mode()
}

func (o *Orchestrator) Session() Session {
	return o.session.snapshot()
}

func (o *Orchestrator) VMStatus() ActuatorState {
	if !o.vm.isConfigured() {
		return ActuatorState{}
	}
	return o.vm.status()
}

func (o *Orchestrator) AvatarStatus() ActuatorState {
	if !o.avatar.isConfigured() {
		return ActuatorState{}
	}
	return o.avatar.status()
}

func (o *Orchestrator) enqueue(event events.Event) bool {
	select {
	case <-o.closeCh:
		return false
	case <-o.stopCh:
		return false
	default:
	}

	select {
	case o.queue <- eventQueueItem{event: event, queuedAt: time.Now()}:
		return true
	default:
		logger.Warn("Event queue full, dropping event", "kind", event.Kind())
		return false
	}
}

// enqueueFromGateway is the emitter handed to gateways and the trigger.
func (o *Orchestrator) enqueueFromGateway(event events.Event) {
	o.enqueue(event)
}
