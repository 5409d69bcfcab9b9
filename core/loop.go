package orchestration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fortyoneai/omni-core/core/events"
)

func (o *Orchestrator) loop() {
	defer close(o.done)
	for {
		select {
		case <-o.stopCh:
			o.handleEmergencyStop()
			return
		case <-o.closeCh:
			return
		case item := <-o.queue:
			// The stop signal outranks anything already queued.
			select {
			case <-o.stopCh:
				o.handleEmergencyStop()
				return
			default:
			}
			o.processEvent(item)
		}
	}
}

func (o *Orchestrator) processEvent(item eventQueueItem) {
	ctx, span := tracer.Start(o.baseContext, "process event")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.kind", string(item.event.Kind())),
		attribute.Float64("event.queue_latency", time.Since(item.queuedAt).Seconds()),
	)

	switch event := item.event.(type) {
	case events.UserChunk:
		o.handleUserChunk(event)
	case events.UserPrompt:
		o.handleUserPrompt(event)
	case events.UserTranscript:
		o.handleUserTranscript(event)
	case events.UserTurnOpened:
		o.handleUserTurnOpened()
	case events.UserTurnEnded:
		o.handleUserTurnEnded(ctx)
	case events.CloseInput:
		o.handleUserTurnEnded(ctx)
	case events.OpenInput:
		o.session.touch()
	case events.ContextAugmented:
		o.handleContextAugmented(event)
	case events.PartialText:
		o.handlePartialText(event)
	case events.AudioFrame:
		o.handleAudioFrame(event)
	case events.ReplyEnd:
		o.handleReplyEnd(ctx)
	case events.ActionProposed:
		o.handleActionProposed(event)
	case events.ActionResult:
		o.handleActionResult(ctx, event)
		o.callbackEmitter(event)
	case events.ActionFailed:
		if event.Ticket != "" && event.Ticket == o.pendingAnalysis {
			o.pendingAnalysis = ""
		}
		o.handleActionCompleted(ctx, event.Actuator, event.Err)
		o.callbackEmitter(event)
	case events.ActionDispatched, events.ActuatorStatus:
		o.callbackEmitter(item.event)
	case events.ConnectionError:
		o.handleConnectionError(event)
	case events.Reconnected:
		logger.Info("Stream reconnected", "attempts", event.Attempts)
	case events.ChunkDropped:
		logger.Warn("Outbound chunks dropped during reconnect", "dropped", event.Dropped)
		o.callbackEmitter(event)
	case events.EmergencyStop:
		o.EmergencyStop()
	default:
		logger.Warn("Unhandled event", "kind", item.event.Kind())
	}
}

// transitionOrResync attempts a transition and treats a refusal as a
// protocol desynchronization: open turns are discarded and the session
// snaps back to IDLE.
func (o *Orchestrator) transitionOrResync(to Mode) bool {
	if err := o.session.transition(to); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			logger.Warn("Protocol desynchronization, resyncing to IDLE", "error", err)
			o.ledger.discard()
			o.session.resync()
		}
		return false
	}
	return true
}

func (o *Orchestrator) handleUserChunk(event events.UserChunk) {
	// Video frames are ambient perception: they never open a turn.
	if event.Media == "video" {
		if o.session.Mode() == ModeEmergencyStopped {
			return
		}
		o.forwardChunk(event.Media, o.stream.sendVideo(event.Data))
		return
	}

	switch o.session.Mode() {
	case ModeIdle, ModeActing:
		if o.transitionOrResync(ModeListening) {
			if _, err := o.ledger.open(SpeakerUser); err != nil {
				logger.Warn("Failed to open user turn", "error", err)
			}
		}
	case ModeListening:
		o.session.touch()
	case ModeEmergencyStopped:
		return
	default:
		// Audio keeps flowing during SPEAKING; the endpoint's own speech
		// detection decides whether it matters.
	}

	o.forwardChunk(event.Media, o.stream.send(event.Data))
}

func (o *Orchestrator) forwardChunk(media string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, ErrBackpressureExceeded) {
		logger.Warn("Dropping chunk on backpressure", "media", media)
		o.callbackEmitter(events.NewChunkDropped(1))
		return
	}
	logger.Warn("Failed to send chunk", "error", err)
}

func (o *Orchestrator) handleUserPrompt(event events.UserPrompt) {
	switch o.session.Mode() {
	case ModeIdle, ModeActing:
		if o.transitionOrResync(ModeListening) {
			if _, err := o.ledger.open(SpeakerUser); err != nil {
				logger.Warn("Failed to open user turn", "error", err)
			}
		}
	case ModeThinking, ModeSpeaking:
		// A typed prompt over an active exchange is a barge-in: cut the
		// reply, keep what was spoken so far and start a fresh turn.
		o.bargeIn()
	case ModeEmergencyStopped:
		return
	}
	if turn := o.ledger.openTurn(SpeakerUser); turn != nil {
		turn.append(event.Prompt)
	}

	if err := o.stream.sendText(event.Prompt); err != nil {
		logger.Warn("Failed to send prompt", "error", err)
	}
	o.finishUserTurn(false)
}

// handleUserTranscript folds the endpoint's transcription of spoken input
// into the open user turn. A transcript that lands after the turn already
// closed still reaches memory as its own record.
func (o *Orchestrator) handleUserTranscript(event events.UserTranscript) {
	if event.Text == "" {
		return
	}
	if turn := o.ledger.openTurn(SpeakerUser); turn != nil {
		turn.append(event.Text)
		return
	}
	turn := newTurn(SpeakerUser)
	turn.append(event.Text)
	turn.close()
	o.memory.record(o.baseContext, turn)
}

func (o *Orchestrator) handleUserTurnOpened() {
	switch o.session.Mode() {
	case ModeIdle, ModeActing:
		if o.transitionOrResync(ModeListening) {
			if _, err := o.ledger.open(SpeakerUser); err != nil {
				logger.Warn("Failed to open user turn", "error", err)
			}
		}
	case ModeSpeaking, ModeThinking:
		// Barge-in: the user talks over the reply. Cut the response,
		// persist what was said so far and start listening again.
		o.bargeIn()
	}
}

// bargeIn aborts the in-progress exchange and reopens a user turn in
// LISTENING. Any response still gated on augmentation is abandoned.
func (o *Orchestrator) bargeIn() {
	if err := o.stream.cancelResponse(); err != nil {
		logger.Warn("Failed to cancel response on barge-in", "error", err)
	}
	if turn := o.ledger.closeTurn(SpeakerAgent); turn != nil {
		o.memory.record(o.baseContext, turn)
	}
	o.awaitingAugment = false
	o.pendingCommit = false
	o.session.resync()
	if o.transitionOrResync(ModeListening) {
		if _, err := o.ledger.open(SpeakerUser); err != nil {
			logger.Warn("Failed to open user turn", "error", err)
		}
	}
}

func (o *Orchestrator) handleUserTurnEnded(ctx context.Context) {
	if o.session.Mode() != ModeListening {
		return
	}
	o.finishUserTurn(true)
	_ = ctx
}

// finishUserTurn closes the open user turn, hands it to memory and moves
// to THINKING. Augmentation runs concurrently and re-enters the loop as a
// ContextAugmented event; commit and response creation wait for it.
func (o *Orchestrator) finishUserTurn(commitAudio bool) {
	if !o.transitionOrResync(ModeThinking) {
		return
	}

	turn := o.ledger.closeTurn(SpeakerUser)
	query := ""
	turnID := ""
	if turn != nil {
		query = turn.Transcript()
		turnID = turn.ID
		o.memory.record(o.baseContext, turn)
	}

	o.awaitingAugment = true
	o.pendingCommit = commitAudio
	go func() {
		lines := o.memory.augment(o.baseContext, query)
		o.enqueue(events.NewContextAugmented(turnID, lines))
	}()
}

func (o *Orchestrator) handleContextAugmented(event events.ContextAugmented) {
	if len(event.Context) > 0 {
		context := "Relevant memories:\n"
		for _, line := range event.Context {
			context += "- " + line + "\n"
		}
		if err := o.stream.sendContext(context); err != nil {
			logger.Warn("Failed to send augmented context", "error", err)
		}
	}

	// A mid-turn recall result only contributes context; the response
	// request belongs to the turn that is waiting on augmentation.
	if !o.awaitingAugment || o.session.Mode() != ModeThinking {
		return
	}
	o.awaitingAugment = false
	if o.pendingCommit {
		o.pendingCommit = false
		if err := o.stream.commitAudio(); err != nil {
			logger.Warn("Failed to commit audio turn", "error", err)
		}
	}
	if err := o.stream.createResponse(); err != nil {
		logger.Warn("Failed to request response", "error", err)
	}
}

func (o *Orchestrator) handlePartialText(event events.PartialText) {
	if o.session.Mode() == ModeThinking {
		if o.transitionOrResync(ModeSpeaking) {
			if _, err := o.ledger.open(SpeakerAgent); err != nil {
				logger.Warn("Failed to open agent turn", "error", err)
			}
		}
	}
	if o.session.Mode() != ModeSpeaking {
		logger.Warn("Discarding reply text outside SPEAKING", "mode", o.session.Mode())
		return
	}
	if turn := o.ledger.openTurn(SpeakerAgent); turn != nil {
		turn.append(event.Text)
	}
	o.session.touch()
	o.callbackEmitter(event)
}

func (o *Orchestrator) handleAudioFrame(event events.AudioFrame) {
	if o.session.Mode() == ModeThinking {
		if o.transitionOrResync(ModeSpeaking) {
			if _, err := o.ledger.open(SpeakerAgent); err != nil {
				logger.Warn("Failed to open agent turn", "error", err)
			}
		}
	}
	if o.session.Mode() != ModeSpeaking {
		return
	}
	o.session.touch()
	o.callbackEmitter(event)
}

func (o *Orchestrator) handleReplyEnd(ctx context.Context) {
	if o.session.Mode() != ModeSpeaking {
		o.transitionOrResync(ModeIdle)
		return
	}

	turn := o.ledger.closeTurn(SpeakerAgent)
	if !o.transitionOrResync(ModeIdle) {
		return
	}
	o.callbackEmitter(events.NewReplyEnd())

	if turn == nil {
		return
	}
	intents, spoken := parseActionIntents(turn.Transcript(), OriginUserTurn)
	turn.Chunks = []string{spoken}
	turn.ActionIntents = intents
	o.memory.record(ctx, turn)

	for _, intent := range intents {
		o.dispatchIntent(ctx, intent)
	}
}

func (o *Orchestrator) dispatchIntent(ctx context.Context, intent ActionIntent) (string, error) {
	switch intent.Kind {
	case IntentKindVM:
		return o.enqueueToGateway(o.vm, intent)
	case IntentKindAvatar:
		return o.enqueueToGateway(o.avatar, intent)
	case IntentKindMemory:
		o.dispatchMemoryIntent(ctx, intent)
	}
	return "", nil
}

func (o *Orchestrator) gatewayFor(kind IntentKind) *actuatorGateway {
	switch kind {
	case IntentKindVM:
		return o.vm
	case IntentKindAvatar:
		return o.avatar
	}
	return nil
}

func (o *Orchestrator) enqueueToGateway(gateway *actuatorGateway, intent ActionIntent) (string, error) {
	if !gateway.isConfigured() {
		logger.Warn("Dropping intent for unconfigured actuator", "command", intent.Name)
		return "", fmt.Errorf("actuator is not configured")
	}
	ticket, err := gateway.enqueue(intent)
	if err != nil {
		logger.Warn("Failed to enqueue intent", "actuator", gateway.name, "error", err)
		o.narrateFailure(gateway.name, err)
		return "", err
	}
	return ticket, nil
}

func (o *Orchestrator) dispatchMemoryIntent(ctx context.Context, intent ActionIntent) {
	switch intent.Name {
	case "store":
		content, _ := intent.Args["content"].(string)
		importance, _ := intent.Args["importance"].(float64)
		o.memory.remember(ctx, content, importance)
	case "recall":
		query, _ := intent.Args["query"].(string)
		go func() {
			lines := o.memory.augment(o.baseContext, query)
			o.enqueue(events.NewContextAugmented("", lines))
		}()
	}
}

func (o *Orchestrator) handleActionProposed(event events.ActionProposed) {
	intent, ok := event.Intent.(ActionIntent)
	if !ok {
		logger.Warn("Discarding proposal with unexpected payload")
		return
	}
	if o.session.Mode() != ModeIdle {
		logger.Debug("Discarding autonomous proposal outside IDLE",
			"mode", o.session.Mode(), "reason", event.Reason)
		return
	}
	if gateway := o.gatewayFor(intent.Kind); gateway != nil && !gateway.isConfigured() {
		logger.Debug("Discarding autonomous proposal for unconfigured actuator",
			"command", intent.Name)
		return
	}
	if !o.transitionOrResync(ModeActing) {
		return
	}
	// A failed or gateway-less dispatch produces no completion event, so
	// the session must not wait for one.
	ticket, err := o.dispatchIntent(o.baseContext, intent)
	if err != nil || intent.Kind == IntentKindMemory {
		o.transitionOrResync(ModeIdle)
		return
	}
	if intent.Origin == OriginAutonomous && intent.Name == "screenshot" {
		o.pendingAnalysis = ticket
	}
}

func (o *Orchestrator) handleActionResult(ctx context.Context, event events.ActionResult) {
	if event.Ticket != "" && event.Ticket == o.pendingAnalysis {
		o.pendingAnalysis = ""
		// A user turn that started meanwhile outranks the capture.
		if o.session.Mode() == ModeActing {
			o.analyzeScreen(event.Output)
			return
		}
	}
	o.handleActionCompleted(ctx, event.Actuator, nil)
}

// analyzeScreen hands an autonomous capture back to the model so it can
// comment on what the machine is doing. The exchange runs through the
// normal LISTENING/THINKING/SPEAKING cycle.
func (o *Orchestrator) analyzeScreen(path string) {
	image, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Failed to read screen capture", "path", path, "error", err)
		o.transitionOrResync(ModeIdle)
		return
	}
	if !o.transitionOrResync(ModeListening) {
		return
	}
	if !o.transitionOrResync(ModeThinking) {
		return
	}
	if err := o.stream.sendImage(image); err != nil {
		logger.Warn("Failed to send screen capture", "error", err)
		o.session.resync()
		return
	}
	if err := o.stream.sendContext("This is the current screen of the machine you watch over. Briefly mention anything noteworthy, or stay quiet if nothing changed."); err != nil {
		logger.Warn("Failed to send analysis context", "error", err)
	}
	if err := o.stream.createResponse(); err != nil {
		logger.Warn("Failed to request screen analysis", "error", err)
		o.session.resync()
	}
}

func (o *Orchestrator) handleActionCompleted(ctx context.Context, actuator string, failure error) {
	if o.session.Mode() == ModeActing {
		o.transitionOrResync(ModeIdle)
	}
	if failure != nil {
		o.narrateFailure(actuator, failure)
	}
	_ = ctx
}

// narrateFailure records a system turn so the conversational layer can
// tell the user what went wrong.
func (o *Orchestrator) narrateFailure(actuator string, failure error) {
	turn := newTurn(SpeakerSystem)
	turn.append(fmt.Sprintf("The %s action failed: %v", actuator, failure))
	turn.close()
	o.memory.record(o.baseContext, turn)

	if err := o.stream.sendContext(turn.Transcript()); err != nil {
		logger.Debug("Failed to narrate failure", "error", err)
	}
}

func (o *Orchestrator) handleConnectionError(event events.ConnectionError) {
	logger.Warn("Stream connection error", "error", event.Err)
	o.callbackEmitter(event)

	switch o.session.Mode() {
	case ModeListening, ModeThinking, ModeSpeaking:
		// Drop the partial turns without recording them so the retried
		// exchange is not persisted twice.
		o.ledger.discard()
		o.session.resync()
	}
}

func (o *Orchestrator) handleEmergencyStop() {
	logger.Info("Emergency stop")
	if err := o.session.transition(ModeEmergencyStopped); err != nil {
		logger.Warn("Emergency stop on a terminated session", "error", err)
	}

	if err := o.stream.cancelResponse(); err != nil {
		logger.Debug("Failed to cancel response during emergency stop", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.shutdownGrace)
	defer cancel()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		o.vm.drain(ctx)
		o.avatar.drain(ctx)
		o.vm.close()
		o.avatar.close()
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		logger.Warn("Grace period expired before actuators drained")
	}

	o.trigger.close()
	o.stream.close()
	o.ledger.discard()
}
