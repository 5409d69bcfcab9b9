package orchestration

import (
	"time"

	"github.com/fortyoneai/omni-core/core/actuators"
	"github.com/fortyoneai/omni-core/core/memories"
)

type OrchestratorOption func(*Orchestrator)

// WithStream wires the inference stream client.
func WithStream(client StreamClient) OrchestratorOption {
	return func(o *Orchestrator) {
		o.stream.client = client
	}
}

// WithMemoryStore wires long-term memory. Without it augmentation and
// recording quietly do nothing.
func WithMemoryStore(store memories.Store) OrchestratorOption {
	return func(o *Orchestrator) {
		o.memory.store = store
	}
}

func WithWorkingMemory(working *memories.WorkingMemory) OrchestratorOption {
	return func(o *Orchestrator) {
		o.memory.working = working
	}
}

func WithAugmentTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.memory.augmentTimeout = timeout
		}
	}
}

// WithVMActuator wires the virtual machine driver.
func WithVMActuator(driver actuators.Driver) OrchestratorOption {
	return func(o *Orchestrator) {
		o.vm = newActuatorGateway(actuatorVM, driver, o.enqueueFromGateway)
	}
}

// WithAvatarActuator wires the avatar driver.
func WithAvatarActuator(driver actuators.Driver) OrchestratorOption {
	return func(o *Orchestrator) {
		o.avatar = newActuatorGateway(actuatorAvatar, driver, o.enqueueFromGateway)
	}
}

// WithTriggerCadence overrides the autonomous trigger's jitter window.
func WithTriggerCadence(minInterval, maxInterval time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if minInterval > 0 && maxInterval >= minInterval {
			o.trigger.minInterval = minInterval
			o.trigger.maxInterval = maxInterval
		}
	}
}

func WithTriggerDebounce(debounce time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if debounce > 0 {
			o.trigger.debounce = debounce
		}
	}
}

// WithShutdownGrace bounds how long emergency stop waits for gateways.
func WithShutdownGrace(grace time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if grace > 0 {
			o.shutdownGrace = grace
		}
	}
}

type OrchestrateOptions struct {
	onModeChange       func(from, to Mode)
	onText             func(text string)
	onAudio            func(audio []byte)
	onReplyEnd         func()
	onActionDispatched func(actuator, ticket string)
	onActionResult     func(actuator, output string, err error)
	onError            func(err error)
	onChunksDropped    func(dropped int)
}

type OrchestrateOption func(*OrchestrateOptions)

func OnModeChange(callback func(from, to Mode)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onModeChange = callback }
}

func OnText(callback func(text string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onText = callback }
}

func OnAudio(callback func(audio []byte)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onAudio = callback }
}

func OnReplyEnd(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onReplyEnd = callback }
}

func OnActionDispatched(callback func(actuator, ticket string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onActionDispatched = callback }
}

func OnActionResult(callback func(actuator, output string, err error)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onActionResult = callback }
}

func OnError(callback func(err error)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onError = callback }
}

func OnChunksDropped(callback func(dropped int)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onChunksDropped = callback }
}
