package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	orchestration "github.com/fortyoneai/omni-core/core"
	"github.com/fortyoneai/omni-core/core/actuators/qmp"
	"github.com/fortyoneai/omni-core/core/actuators/vmc"
	"github.com/fortyoneai/omni-core/core/capture/miniaudio"
	"github.com/fortyoneai/omni-core/core/capture/portaudio"
	"github.com/fortyoneai/omni-core/core/memories"
	"github.com/fortyoneai/omni-core/core/memories/embeddings"
	"github.com/fortyoneai/omni-core/core/memories/sqlitevec"
	"github.com/fortyoneai/omni-core/core/streams/omni"
	"github.com/fortyoneai/omni-core/internal/config"
)

func runAgent(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	options, cleanup, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	orchestrator := orchestration.NewOrchestrator(options...)
	defer orchestrator.Close()

	// An out-of-band interrupt is an emergency stop, not a polite shutdown:
	// actuators get aborted within the grace window before exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go watchInterrupts(ctx, cancel, sigCh, orchestrator)

	audio := openAudioBackend()
	if audio != nil {
		defer audio.Close()
	}

	if headless {
		return runHeadless(ctx, orchestrator, audio)
	}
	return runWithUI(ctx, orchestrator, audio)
}

// watchInterrupts maps an interrupt onto the emergency stop before the
// context unwinds everything else.
func watchInterrupts(ctx context.Context, cancel context.CancelFunc, sigCh <-chan os.Signal, orchestrator *orchestration.Orchestrator) {
	select {
	case <-sigCh:
		orchestrator.EmergencyStop()
		cancel()
	case <-ctx.Done():
	}
}

// audioBackend is what both capture implementations provide.
type audioBackend interface {
	Stream(ctx context.Context, onChunk func(chunk []byte)) error
	SendAudio(audio []byte) error
	ClearBuffer()
	Close()
}

func openAudioBackend() audioBackend {
	var (
		backend audioBackend
		err     error
	)
	switch audioBackendName {
	case "none":
		return nil
	case "portaudio":
		backend, err = portaudio.NewClient(0)
	default:
		backend, err = miniaudio.NewClient()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Audio devices unavailable, text input only:", err)
		return nil
	}
	return backend
}

func runHeadless(ctx context.Context, orchestrator *orchestration.Orchestrator, audio audioBackend) error {
	orchestrateOptions := []orchestration.OrchestrateOption{
		orchestration.OnError(func(err error) {
			fmt.Fprintln(os.Stderr, "Stream error:", err)
		}),
	}
	if audio != nil {
		orchestrateOptions = append(orchestrateOptions,
			orchestration.OnAudio(func(frame []byte) {
				_ = audio.SendAudio(frame)
			}),
			orchestration.OnModeChange(func(_, to orchestration.Mode) {
				if to == orchestration.ModeEmergencyStopped {
					audio.ClearBuffer()
				}
			}),
		)
	}

	if err := orchestrator.Orchestrate(ctx, orchestrateOptions...); err != nil {
		return err
	}
	if err := startAudio(ctx, orchestrator, audio); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

func runWithUI(ctx context.Context, orchestrator *orchestration.Orchestrator, audio audioBackend) error {
	program := tea.NewProgram(newControlModel(orchestrator), tea.WithAltScreen(), tea.WithContext(ctx))

	orchestrateOptions := []orchestration.OrchestrateOption{
		orchestration.OnModeChange(func(from, to orchestration.Mode) {
			if to == orchestration.ModeEmergencyStopped && audio != nil {
				audio.ClearBuffer()
			}
			program.Send(modeChangedMsg{From: from, To: to})
		}),
		orchestration.OnText(func(text string) {
			program.Send(transcriptMsg{Speaker: "agent", Text: text, Delta: true})
		}),
		orchestration.OnReplyEnd(func() {
			program.Send(replyEndedMsg{})
		}),
		orchestration.OnActionDispatched(func(actuator, ticket string) {
			program.Send(actionMsg{Actuator: actuator, Detail: "dispatched"})
		}),
		orchestration.OnActionResult(func(actuator, output string, err error) {
			detail := "done"
			if err != nil {
				detail = err.Error()
			} else if output != "" {
				detail = output
			}
			program.Send(actionMsg{Actuator: actuator, Detail: detail})
		}),
		orchestration.OnError(func(err error) {
			program.Send(streamErrorMsg{Err: err})
		}),
		orchestration.OnChunksDropped(func(dropped int) {
			program.Send(chunksDroppedMsg{Dropped: dropped})
		}),
	}
	if audio != nil {
		orchestrateOptions = append(orchestrateOptions, orchestration.OnAudio(func(frame []byte) {
			_ = audio.SendAudio(frame)
		}))
	}

	if err := orchestrator.Orchestrate(ctx, orchestrateOptions...); err != nil {
		return err
	}
	if err := startAudio(ctx, orchestrator, audio); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := program.Run()
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		program.Quit()
		return nil
	})
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// startAudio begins forwarding microphone chunks into the loop. The
// portaudio backend blocks in Stream, so it runs in its own goroutine.
func startAudio(ctx context.Context, orchestrator *orchestration.Orchestrator, audio audioBackend) error {
	if audio == nil {
		return nil
	}
	go func() {
		if err := audio.Stream(ctx, orchestrator.SendAudio); err != nil {
			fmt.Fprintln(os.Stderr, "Audio capture stopped:", err)
		}
	}()
	return nil
}

// buildComponents assembles the orchestrator options from configuration.
// The VM and avatar actuators are optional: a failed connection logs and
// the agent runs without that capability.
func buildComponents(ctx context.Context, cfg *config.Config) ([]orchestration.OrchestratorOption, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	options := []orchestration.OrchestratorOption{
		orchestration.WithTriggerCadence(
			time.Duration(cfg.TriggerMinSeconds)*time.Second,
			time.Duration(cfg.TriggerMaxSeconds)*time.Second,
		),
	}

	streamClient := omni.NewClient(cfg.DashScopeAPIKey,
		omni.WithBaseURL(cfg.StreamBaseURL),
		omni.WithModel(cfg.StreamModel),
		omni.WithVoice(cfg.AudioVoice),
		omni.WithInstructions(buildInstructions()),
	)
	options = append(options, orchestration.WithStream(streamClient))

	embedder, err := embeddings.NewOpenAIEngine(cfg.EmbeddingBaseURL, cfg.DashScopeAPIKey, cfg.EmbeddingModel, 0)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to build embedder: %w", err)
	}
	store, err := sqlitevec.Open(cfg.MemoryDBPath, embedder)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to open memory store: %w", err)
	}
	closers = append(closers, func() { _ = store.Close() })
	options = append(options,
		orchestration.WithMemoryStore(store),
		orchestration.WithWorkingMemory(memories.NewWorkingMemory(cfg.WorkingMemorySize)),
	)

	vm := qmp.NewClient(cfg.QMPSocketPath,
		qmp.WithScreenSize(cfg.VMWidth(), cfg.VMHeight()),
		qmp.WithScreenshotDir(cfg.ScreenshotDir),
	)
	if err := vm.Connect(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "VM control unavailable:", err)
	} else {
		closers = append(closers, func() { _ = vm.Close() })
		options = append(options, orchestration.WithVMActuator(vm))
	}

	avatar := vmc.NewClient(cfg.VMCHost, cfg.VMCPort)
	avatar.Start(ctx)
	closers = append(closers, func() { _ = avatar.Close() })
	options = append(options, orchestration.WithAvatarActuator(avatar))

	return options, cleanup, nil
}

// buildInstructions describes the tool vocabulary so replies can embed
// <tool_call> blocks the loop knows how to parse.
func buildInstructions() string {
	schemas := orchestration.ToolSchemas()
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("You are an autonomous desktop agent with a voice, an avatar and ")
	b.WriteString("control over a virtual machine. To act, embed tool calls in your ")
	b.WriteString("reply as <tool_call>{\"name\": ..., \"args\": {...}}</tool_call> ")
	b.WriteString("blocks. Available tools:\n")
	for _, name := range names {
		b.WriteString("- " + name)
		if encoded, err := json.Marshal(schemas[name]); err == nil {
			b.WriteString(" " + string(encoded))
		}
		b.WriteString("\n")
	}
	return b.String()
}
