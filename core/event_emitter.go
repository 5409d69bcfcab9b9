package orchestration

import events "github.com/fortyoneai/omni-core/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts OrchestrateOptions) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.PartialText:
			if opts.onText != nil {
				opts.onText(typedEvent.Text)
			}
		case events.AudioFrame:
			if opts.onAudio != nil {
				opts.onAudio(typedEvent.Audio)
			}
		case events.ReplyEnd:
			if opts.onReplyEnd != nil {
				opts.onReplyEnd()
			}
		case events.ActionDispatched:
			if opts.onActionDispatched != nil {
				opts.onActionDispatched(typedEvent.Actuator, typedEvent.Ticket)
			}
		case events.ActionResult:
			if opts.onActionResult != nil {
				opts.onActionResult(typedEvent.Actuator, typedEvent.Output, typedEvent.Err)
			}
		case events.ActionFailed:
			if opts.onActionResult != nil {
				opts.onActionResult(typedEvent.Actuator, "", typedEvent.Err)
			}
		case events.ConnectionError:
			if opts.onError != nil {
				opts.onError(typedEvent.Err)
			}
		case events.ChunkDropped:
			if opts.onChunksDropped != nil {
				opts.onChunksDropped(typedEvent.Dropped)
			}
		}
	}
}
