package events

const (
	KindActionDispatched Kind = "actuator.dispatched"
	KindActionResult     Kind = "actuator.result"
	KindActionFailed     Kind = "actuator.failed"
	KindActuatorStatus   Kind = "actuator.status"
)

// ActionDispatched reports that an actuator gateway accepted an intent and
// started executing it.
type ActionDispatched struct {
	Base
	Actuator string
	Ticket   string
}

func (e ActionDispatched) String() string { return "action dispatched: " + e.Actuator }

func NewActionDispatched(actuator, ticket string, opts ...RebaseOption) ActionDispatched {
	base := NewBase(KindActionDispatched)
	for _, opt := range opts {
		opt(&base)
	}

	return ActionDispatched{Base: base, Actuator: actuator, Ticket: ticket}
}

// ActionResult reports completion of a dispatched command, success or not.
// A failed transient result has already been retried once by the gateway
// before it surfaces here.
type ActionResult struct {
	Base
	Actuator string
	Ticket   string
	Output   string
	Err      error
}

func (e ActionResult) String() string { return "action result: " + e.Actuator }

func NewActionResult(actuator, ticket, output string, err error, opts ...RebaseOption) ActionResult {
	base := NewBase(KindActionResult)
	for _, opt := range opts {
		opt(&base)
	}

	return ActionResult{Base: base, Actuator: actuator, Ticket: ticket, Output: output, Err: err}
}

// ActionFailed reports a permanent command failure. The orchestrator narrates
// it as a system turn instead of retrying.
type ActionFailed struct {
	Base
	Actuator string
	Ticket   string
	Err      error
}

func (e ActionFailed) String() string { return "action failed: " + e.Actuator }

func NewActionFailed(actuator, ticket string, err error, opts ...RebaseOption) ActionFailed {
	base := NewBase(KindActionFailed)
	for _, opt := range opts {
		opt(&base)
	}

	return ActionFailed{Base: base, Actuator: actuator, Ticket: ticket, Err: err}
}

// ActuatorStatus mirrors the gateway's busy flag onto the event queue so the
// orchestrator can advance its pending work without polling.
type ActuatorStatus struct {
	Base
	Actuator string
	Busy     bool
	Pending  int
}

func (e ActuatorStatus) String() string { return "actuator status: " + e.Actuator }

func NewActuatorStatus(actuator string, busy bool, pending int, opts ...RebaseOption) ActuatorStatus {
	base := NewBase(KindActuatorStatus)
	for _, opt := range opts {
		opt(&base)
	}

	return ActuatorStatus{Base: base, Actuator: actuator, Busy: busy, Pending: pending}
}
