package events

const (
	KindActionProposed   Kind = "trigger.action_proposed"
	KindOpenInput        Kind = "control.open_input"
	KindCloseInput       Kind = "control.close_input"
	KindEmergencyStop    Kind = "control.emergency_stop"
	KindContextAugmented Kind = "memory.context_augmented"
)

// ActionProposed is an autonomous proposal. It is arbitrated on the same
// queue as every other source and discarded unless the session is idle.
type ActionProposed struct {
	Base
	Reason string
	Intent any
}

func (e ActionProposed) String() string { return "action proposed: " + e.Reason }

func NewActionProposed(reason string, intent any, opts ...RebaseOption) ActionProposed {
	base := NewBase(KindActionProposed)
	for _, opt := range opts {
		opt(&base)
	}

	return ActionProposed{Base: base, Reason: reason, Intent: intent}
}

// OpenInput maps the control surface's "open input" keystroke.
type OpenInput struct{ Base }

func (e OpenInput) String() string { return "open input" }

func NewOpenInput(opts ...RebaseOption) OpenInput {
	base := NewBase(KindOpenInput)
	for _, opt := range opts {
		opt(&base)
	}

	return OpenInput{Base: base}
}

// CloseInput maps the control surface's "close input" keystroke.
type CloseInput struct{ Base }

func (e CloseInput) String() string { return "close input" }

func NewCloseInput(opts ...RebaseOption) CloseInput {
	base := NewBase(KindCloseInput)
	for _, opt := range opts {
		opt(&base)
	}

	return CloseInput{Base: base}
}

// EmergencyStop is terminal. Once it is processed no further transition is
// possible and every gateway is drained and shut down.
type EmergencyStop struct{ Base }

func (e EmergencyStop) String() string { return "emergency stop" }

func NewEmergencyStop(opts ...RebaseOption) EmergencyStop {
	base := NewBase(KindEmergencyStop)
	for _, opt := range opts {
		opt(&base)
	}

	return EmergencyStop{Base: base}
}

// ContextAugmented carries the memory gateway's augmentation result back
// onto the queue so the loop never waits on retrieval inline.
type ContextAugmented struct {
	Base
	TurnID  string
	Context []string
}

func (e ContextAugmented) String() string { return "context augmented" }

func NewContextAugmented(turnID string, context []string, opts ...RebaseOption) ContextAugmented {
	base := NewBase(KindContextAugmented)
	for _, opt := range opts {
		opt(&base)
	}

	return ContextAugmented{Base: base, TurnID: turnID, Context: context}
}
