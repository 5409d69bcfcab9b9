package orchestration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fortyoneai/omni-core/core/events"
	"github.com/fortyoneai/omni-core/core/memories"
	"github.com/fortyoneai/omni-core/core/streams/omni"
)

// scriptedStreamClient records everything the orchestrator sends and lets
// tests fire the inbound callbacks by hand.
type scriptedStreamClient struct {
	mu           sync.Mutex
	callbacks    omni.Callbacks
	chunks       [][]byte
	frames       [][]byte
	images       [][]byte
	texts        []string
	contexts     []string
	commits      int
	creates      int
	cancels      int
	closed       bool
	trySendError error
}

func (c *scriptedStreamClient) Configure(callbacks omni.Callbacks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = callbacks
}

func (c *scriptedStreamClient) Connect(context.Context) error { return nil }

func (c *scriptedStreamClient) TrySend(chunk []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.trySendError != nil {
		return c.trySendError
	}
	c.chunks = append(c.chunks, chunk)
	return nil
}

func (c *scriptedStreamClient) TrySendVideo(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.trySendError != nil {
		return c.trySendError
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *scriptedStreamClient) SendImage(image []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images = append(c.images, image)
	return nil
}

func (c *scriptedStreamClient) SendText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return nil
}

func (c *scriptedStreamClient) SendContext(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contexts = append(c.contexts, text)
	return nil
}

func (c *scriptedStreamClient) CommitAudio() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commits++
	return nil
}

func (c *scriptedStreamClient) CreateResponse() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creates++
	return nil
}

func (c *scriptedStreamClient) CancelResponse() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancels++
	return nil
}

func (c *scriptedStreamClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *scriptedStreamClient) inbound() omni.Callbacks {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callbacks
}

func (c *scriptedStreamClient) counts() (commits, creates, cancels int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commits, c.creates, c.cancels
}

// recordingStore is an in-memory memories.Store whose recall behavior is
// scriptable.
type recordingStore struct {
	mu           sync.Mutex
	stored       []memories.Memory
	recallResult []memories.Recalled
	recallDelay  time.Duration
}

func (s *recordingStore) Store(_ context.Context, memory memories.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = append(s.stored, memory)
	return nil
}

func (s *recordingStore) Recall(ctx context.Context, _ string, _ ...memories.RecallOption) ([]memories.Recalled, error) {
	if s.recallDelay > 0 {
		select {
		case <-time.After(s.recallDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recallResult, nil
}

func (s *recordingStore) Recent(context.Context, int) ([]memories.Memory, error) { return nil, nil }

func (s *recordingStore) Close() error { return nil }

func (s *recordingStore) contents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	contents := make([]string, 0, len(s.stored))
	for _, memory := range s.stored {
		contents = append(contents, memory.Content)
	}
	return contents
}

func eventually(t *testing.T, condition func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", message)
}

func modeRecorder() (OrchestrateOption, func() []Mode) {
	var mu sync.Mutex
	var modes []Mode
	option := OnModeChange(func(_, to Mode) {
		mu.Lock()
		defer mu.Unlock()
		modes = append(modes, to)
	})
	return option, func() []Mode {
		mu.Lock()
		defer mu.Unlock()
		return append([]Mode(nil), modes...)
	}
}

func TestVoiceTurnWalksTheFullCycle(t *testing.T) {
	client := &scriptedStreamClient{}
	o := NewOrchestrator(WithStream(client))
	defer o.Close()

	recordModes, modes := modeRecorder()
	replyEnded := make(chan struct{}, 1)

	if err := o.Orchestrate(context.Background(), recordModes, OnReplyEnd(func() {
		select {
		case replyEnded <- struct{}{}:
		default:
		}
	})); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}

	inbound := client.inbound()
	inbound.SpeechStartedCallback()
	o.SendAudio([]byte{0x01, 0x02})
	eventually(t, func() bool { return o.Mode() == ModeListening }, "LISTENING")

	inbound.SpeechStoppedCallback()
	eventually(t, func() bool {
		commits, creates, _ := client.counts()
		return commits == 1 && creates == 1
	}, "commit and response request")

	inbound.TextCallback("On it.")
	eventually(t, func() bool { return o.Mode() == ModeSpeaking }, "SPEAKING")

	inbound.TurnEndCallback()
	select {
	case <-replyEnded:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for reply end")
	}
	eventually(t, func() bool { return o.Mode() == ModeIdle }, "IDLE")

	expected := []Mode{ModeIdle, ModeListening, ModeThinking, ModeSpeaking, ModeIdle}
	got := modes()
	if len(got) != len(expected) {
		t.Fatalf("expected modes %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("expected modes %v, got %v", expected, got)
		}
	}

	client.mu.Lock()
	chunks := len(client.chunks)
	client.mu.Unlock()
	if chunks != 1 {
		t.Fatalf("expected the audio chunk forwarded, got %d", chunks)
	}
}

func TestReplyToolCallsDispatchInOrder(t *testing.T) {
	client := &scriptedStreamClient{}
	driver := newScriptedDriver()
	o := NewOrchestrator(WithStream(client), WithVMActuator(driver))
	defer o.Close()

	var mu sync.Mutex
	var results int
	if err := o.Orchestrate(context.Background(), OnActionResult(func(string, string, error) {
		mu.Lock()
		defer mu.Unlock()
		results++
	})); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}

	o.SendText("open the editor and save")
	eventually(t, func() bool { return o.Mode() == ModeThinking }, "THINKING")

	inbound := client.inbound()
	inbound.TextCallback("Opening it now. " +
		`<tool_call>{"name": "vm_click", "args": {"x": 10, "y": 20}}</tool_call>` +
		`<tool_call>{"name": "vm_type", "args": {"text": "notes"}}</tool_call>` +
		`<tool_call>{"name": "vm_press_key", "args": {"key": "ctrl-s"}}</tool_call>`)
	inbound.TurnEndCallback()

	eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return results == 3
	}, "three action results")

	if got := driver.submittedNames(); len(got) != 3 ||
		got[0] != "click" || got[1] != "type" || got[2] != "press_key" {
		t.Fatalf("expected tool calls executed in order, got %v", got)
	}
	if driver.overlapped {
		t.Fatalf("expected one command in flight at a time")
	}
}

func TestAutonomousProposalRunsWhileIdle(t *testing.T) {
	client := &scriptedStreamClient{}
	driver := newScriptedDriver()
	o := NewOrchestrator(WithStream(client), WithVMActuator(driver))
	defer o.Close()

	if err := o.Orchestrate(context.Background()); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}
	eventually(t, func() bool { return o.Mode() == ModeIdle }, "IDLE")

	o.enqueue(events.NewActionProposed("periodic screen check", ActionIntent{
		Kind:   IntentKindVM,
		Name:   "screenshot",
		Origin: OriginAutonomous,
	}))

	eventually(t, func() bool {
		names := driver.submittedNames()
		return len(names) == 1 && names[0] == "screenshot"
	}, "autonomous screenshot")
	eventually(t, func() bool { return o.Mode() == ModeIdle }, "IDLE after the action")
}

func TestUserTurnOpensWhileActing(t *testing.T) {
	client := &scriptedStreamClient{}
	driver := newScriptedDriver()
	driver.hold = make(chan struct{})
	o := NewOrchestrator(WithStream(client), WithVMActuator(driver))
	defer o.Close()

	if err := o.Orchestrate(context.Background()); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}
	eventually(t, func() bool { return o.Mode() == ModeIdle }, "IDLE")

	o.enqueue(events.NewActionProposed("periodic screen check", ActionIntent{
		Kind: IntentKindVM, Name: "screenshot", Origin: OriginAutonomous,
	}))
	eventually(t, func() bool { return o.Mode() == ModeActing }, "ACTING")

	client.inbound().SpeechStartedCallback()
	eventually(t, func() bool { return o.Mode() == ModeListening }, "LISTENING during the action")

	close(driver.hold)
	eventually(t, func() bool { return len(driver.submittedNames()) == 1 && !o.VMStatus().Busy }, "the action finished")
	if got := o.Mode(); got != ModeListening {
		t.Fatalf("expected the action's completion to leave LISTENING alone, got %s", got)
	}
}

func TestAutonomousProposalDiscardedOutsideIdle(t *testing.T) {
	client := &scriptedStreamClient{}
	driver := newScriptedDriver()
	o := NewOrchestrator(WithStream(client), WithVMActuator(driver))
	defer o.Close()

	if err := o.Orchestrate(context.Background()); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}

	client.inbound().SpeechStartedCallback()
	eventually(t, func() bool { return o.Mode() == ModeListening }, "LISTENING")

	o.enqueue(events.NewActionProposed("periodic screen check", ActionIntent{
		Kind:   IntentKindVM,
		Name:   "screenshot",
		Origin: OriginAutonomous,
	}))

	time.Sleep(100 * time.Millisecond)
	if got := driver.submittedNames(); len(got) != 0 {
		t.Fatalf("expected the proposal discarded outside IDLE, got %v", got)
	}
	if got := o.Mode(); got != ModeListening {
		t.Fatalf("expected LISTENING to survive the proposal, got %s", got)
	}
}

func TestBargeInCancelsResponse(t *testing.T) {
	client := &scriptedStreamClient{}
	o := NewOrchestrator(WithStream(client))
	defer o.Close()

	if err := o.Orchestrate(context.Background()); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}

	inbound := client.inbound()
	o.SendText("tell me a story")
	eventually(t, func() bool { return o.Mode() == ModeThinking }, "THINKING")
	inbound.TextCallback("Once upon a time")
	eventually(t, func() bool { return o.Mode() == ModeSpeaking }, "SPEAKING")

	inbound.SpeechStartedCallback()
	eventually(t, func() bool { return o.Mode() == ModeListening }, "LISTENING after barge-in")

	_, _, cancels := client.counts()
	if cancels != 1 {
		t.Fatalf("expected the response cancelled on barge-in, got %d cancels", cancels)
	}
}

func TestAugmentedContextPrecedesResponse(t *testing.T) {
	client := &scriptedStreamClient{}
	store := &recordingStore{recallResult: []memories.Recalled{
		{Memory: memories.Memory{Content: "the user prefers dark mode"}},
	}}
	o := NewOrchestrator(WithStream(client), WithMemoryStore(store))
	defer o.Close()

	if err := o.Orchestrate(context.Background()); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}

	inbound := client.inbound()
	inbound.SpeechStartedCallback()
	o.SendText("set up my editor")
	eventually(t, func() bool {
		_, creates, _ := client.counts()
		return creates >= 1
	}, "response request")

	client.mu.Lock()
	defer client.mu.Unlock()
	found := false
	for _, context := range client.contexts {
		if strings.Contains(context, "Relevant memories:") &&
			strings.Contains(context, "the user prefers dark mode") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected recalled memories sent as context, got %v", client.contexts)
	}
}

func TestSlowRecallNeverBlocksTheResponse(t *testing.T) {
	client := &scriptedStreamClient{}
	store := &recordingStore{recallDelay: time.Minute}
	o := NewOrchestrator(WithStream(client), WithMemoryStore(store), WithAugmentTimeout(50*time.Millisecond))
	defer o.Close()

	if err := o.Orchestrate(context.Background()); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}

	o.SendText("what did we talk about yesterday")
	eventually(t, func() bool {
		_, creates, _ := client.counts()
		return creates == 1
	}, "response request despite the hung recall")

	client.mu.Lock()
	contexts := len(client.contexts)
	client.mu.Unlock()
	if contexts != 0 {
		t.Fatalf("expected no context from the timed-out recall, got %d", contexts)
	}
}

func TestBackpressureDropsChunkAndReportsIt(t *testing.T) {
	client := &scriptedStreamClient{trySendError: omni.ErrSendBufferFull}
	o := NewOrchestrator(WithStream(client))
	defer o.Close()

	dropped := make(chan int, 1)
	if err := o.Orchestrate(context.Background(), OnChunksDropped(func(n int) {
		select {
		case dropped <- n:
		default:
		}
	})); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}

	o.SendAudio([]byte{0x01})

	select {
	case n := <-dropped:
		if n != 1 {
			t.Fatalf("expected one dropped chunk reported, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the drop report")
	}
}

func TestConnectionErrorMidTurnResyncsWithoutDuplicateRecord(t *testing.T) {
	client := &scriptedStreamClient{}
	store := &recordingStore{}
	o := NewOrchestrator(WithStream(client), WithMemoryStore(store))
	defer o.Close()

	streamErrors := make(chan error, 1)
	if err := o.Orchestrate(context.Background(), OnError(func(err error) {
		select {
		case streamErrors <- err:
		default:
		}
	})); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}

	inbound := client.inbound()
	o.SendText("hi there")
	eventually(t, func() bool { return o.Mode() == ModeThinking }, "THINKING")
	inbound.TextCallback("Hel")
	eventually(t, func() bool { return o.Mode() == ModeSpeaking }, "SPEAKING")

	inbound.ErrorCallback(errors.New("connection reset"))
	eventually(t, func() bool { return o.Mode() == ModeIdle }, "IDLE after resync")

	select {
	case <-streamErrors:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the error callback")
	}

	eventually(t, func() bool { return len(store.contents()) == 1 }, "the user turn recorded")
	time.Sleep(50 * time.Millisecond)
	for _, content := range store.contents() {
		if strings.Contains(content, "Hel") {
			t.Fatalf("expected the dropped partial reply unrecorded, got %q", content)
		}
	}
}

func TestEmergencyStopIsStickyAndDrains(t *testing.T) {
	client := &scriptedStreamClient{}
	driver := newScriptedDriver()
	o := NewOrchestrator(WithStream(client), WithVMActuator(driver), WithShutdownGrace(500*time.Millisecond))
	defer o.Close()

	recordModes, modes := modeRecorder()
	if err := o.Orchestrate(context.Background(), recordModes); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}
	eventually(t, func() bool { return o.Mode() == ModeIdle }, "IDLE")

	o.EmergencyStop()
	eventually(t, func() bool { return o.Mode() == ModeEmergencyStopped }, "EMERGENCY_STOPPED")

	o.SendText("are you still there")
	o.enqueue(events.NewActionProposed("periodic screen check", ActionIntent{
		Kind: IntentKindVM, Name: "screenshot", Origin: OriginAutonomous,
	}))
	time.Sleep(100 * time.Millisecond)

	if got := o.Mode(); got != ModeEmergencyStopped {
		t.Fatalf("expected EMERGENCY_STOPPED to be terminal, got %s", got)
	}
	if got := driver.submittedNames(); len(got) != 0 {
		t.Fatalf("expected no commands after emergency stop, got %v", got)
	}
	if state := o.VMStatus(); state.Busy || state.Pending != 0 {
		t.Fatalf("expected the gateway drained, got %+v", state)
	}

	got := modes()
	if len(got) == 0 || got[len(got)-1] != ModeEmergencyStopped {
		t.Fatalf("expected the final mode change to EMERGENCY_STOPPED, got %v", got)
	}
}

func TestProposalWithoutActuatorLeavesIdle(t *testing.T) {
	client := &scriptedStreamClient{}
	o := NewOrchestrator(WithStream(client))
	defer o.Close()

	if err := o.Orchestrate(context.Background()); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}
	eventually(t, func() bool { return o.Mode() == ModeIdle }, "IDLE")

	o.enqueue(events.NewActionProposed("periodic screen check", ActionIntent{
		Kind: IntentKindVM, Name: "screenshot", Origin: OriginAutonomous,
	}))

	time.Sleep(150 * time.Millisecond)
	if got := o.Mode(); got != ModeIdle {
		t.Fatalf("expected the undeliverable proposal to leave IDLE alone, got %s", got)
	}

	// The session is not stuck: a user turn still starts normally.
	client.inbound().SpeechStartedCallback()
	eventually(t, func() bool { return o.Mode() == ModeListening }, "LISTENING after the dropped proposal")
}

func TestPromptDuringReplyBargesIn(t *testing.T) {
	client := &scriptedStreamClient{}
	o := NewOrchestrator(WithStream(client))
	defer o.Close()

	if err := o.Orchestrate(context.Background()); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}

	inbound := client.inbound()
	o.SendText("tell me a story")
	eventually(t, func() bool { return o.Mode() == ModeThinking }, "THINKING")
	inbound.TextCallback("Once upon a time")
	eventually(t, func() bool { return o.Mode() == ModeSpeaking }, "SPEAKING")

	o.SendText("actually, skip to the end")
	eventually(t, func() bool {
		_, creates, cancels := client.counts()
		return cancels == 1 && creates == 2
	}, "a cancelled reply and a fresh response request")

	client.mu.Lock()
	texts := append([]string(nil), client.texts...)
	client.mu.Unlock()
	if len(texts) != 2 || texts[1] != "actually, skip to the end" {
		t.Fatalf("expected both prompts delivered, got %v", texts)
	}
}

func TestVoiceTranscriptFlowsIntoMemory(t *testing.T) {
	client := &scriptedStreamClient{}
	store := &recordingStore{}
	o := NewOrchestrator(WithStream(client), WithMemoryStore(store))
	defer o.Close()

	if err := o.Orchestrate(context.Background()); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}

	inbound := client.inbound()
	inbound.SpeechStartedCallback()
	o.SendAudio([]byte{0x01})
	eventually(t, func() bool { return o.Mode() == ModeListening }, "LISTENING")

	inbound.InputTranscriptCallback("remember the blue door")
	inbound.SpeechStoppedCallback()

	eventually(t, func() bool {
		for _, content := range store.contents() {
			if content == "user: remember the blue door" {
				return true
			}
		}
		return false
	}, "the spoken turn recorded")

	eventually(t, func() bool {
		commits, creates, _ := client.counts()
		return commits == 1 && creates == 1
	}, "commit and response request")
}

func TestLateTranscriptIsStillRecorded(t *testing.T) {
	client := &scriptedStreamClient{}
	store := &recordingStore{}
	o := NewOrchestrator(WithStream(client), WithMemoryStore(store))
	defer o.Close()

	if err := o.Orchestrate(context.Background()); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}

	inbound := client.inbound()
	inbound.SpeechStartedCallback()
	eventually(t, func() bool { return o.Mode() == ModeListening }, "LISTENING")
	inbound.SpeechStoppedCallback()
	eventually(t, func() bool { return o.Mode() == ModeThinking }, "THINKING")

	inbound.InputTranscriptCallback("did you catch that")
	eventually(t, func() bool {
		for _, content := range store.contents() {
			if content == "user: did you catch that" {
				return true
			}
		}
		return false
	}, "the late transcript recorded")
}

func TestAutonomousScreenshotIsAnalyzed(t *testing.T) {
	capture := filepath.Join(t.TempDir(), "screen.png")
	if err := os.WriteFile(capture, []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("failed to write capture: %v", err)
	}

	client := &scriptedStreamClient{}
	driver := newScriptedDriver()
	driver.output = capture
	o := NewOrchestrator(WithStream(client), WithVMActuator(driver))
	defer o.Close()

	if err := o.Orchestrate(context.Background()); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}
	eventually(t, func() bool { return o.Mode() == ModeIdle }, "IDLE")

	o.enqueue(events.NewActionProposed("periodic screen check", ActionIntent{
		Kind: IntentKindVM, Name: "screenshot", Origin: OriginAutonomous,
	}))

	eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.images) == 1
	}, "the capture handed back to the model")
	eventually(t, func() bool {
		_, creates, _ := client.counts()
		return creates == 1
	}, "an analysis response request")

	client.mu.Lock()
	image := append([]byte(nil), client.images[0]...)
	client.mu.Unlock()
	if string(image) != "png-bytes" {
		t.Fatalf("expected the capture bytes sent, got %q", image)
	}

	// The analysis flows through the normal reply cycle back to IDLE.
	inbound := client.inbound()
	inbound.TextCallback("A terminal is compiling something.")
	eventually(t, func() bool { return o.Mode() == ModeSpeaking }, "SPEAKING")
	inbound.TurnEndCallback()
	eventually(t, func() bool { return o.Mode() == ModeIdle }, "IDLE after the analysis")
}

func TestVideoFramesBypassTurnTracking(t *testing.T) {
	client := &scriptedStreamClient{}
	o := NewOrchestrator(WithStream(client))
	defer o.Close()

	if err := o.Orchestrate(context.Background()); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}
	eventually(t, func() bool { return o.Mode() == ModeIdle }, "IDLE")

	o.SendVideo([]byte{0xff, 0xd8})
	eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.frames) == 1
	}, "the frame forwarded on the video path")

	client.mu.Lock()
	audioChunks := len(client.chunks)
	client.mu.Unlock()
	if audioChunks != 0 {
		t.Fatalf("expected no frame on the audio path, got %d chunks", audioChunks)
	}
	if got := o.Mode(); got != ModeIdle {
		t.Fatalf("expected ambient video to leave IDLE alone, got %s", got)
	}
}

func TestOrchestratorWithoutStreamIsUsable(t *testing.T) {
	o := NewOrchestrator()
	defer o.Close()

	if err := o.Orchestrate(context.Background()); err != nil {
		t.Fatalf("expected orchestrate without a stream to succeed, got %v", err)
	}
	o.SendAudio([]byte{0x01})
	o.SendText("anyone home")
	eventually(t, func() bool { return o.Mode() == ModeIdle || o.Mode() == ModeThinking }, "a live loop")
}
