package qmp

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fortyoneai/omni-core/core/actuators"
)

// Submit starts the command in the background and returns a ticket to poll.
// Commands execute against the monitor one at a time; the gateway above is
// expected to keep a single command in flight anyway.
func (c *Client) Submit(ctx context.Context, cmd actuators.Command) (actuators.Ticket, error) {
	ticket := c.tracker.Begin(ctx, func(ctx context.Context) (string, error) {
		ctx, span := tracer.Start(ctx, "execute vm command")
		defer span.End()
		span.SetAttributes(attribute.String("command.name", cmd.Name))

		output, err := c.run(ctx, cmd)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "vm command failed")
		}
		return output, err
	})
	return ticket, nil
}

func (c *Client) Poll(_ context.Context, ticket actuators.Ticket) (*actuators.Result, error) {
	return c.tracker.Poll(ticket)
}

func (c *Client) Abort(_ context.Context, ticket actuators.Ticket) error {
	return c.tracker.Abort(ticket)
}

func (c *Client) run(ctx context.Context, cmd actuators.Command) (string, error) {
	switch cmd.Name {
	case "screenshot":
		return c.Screenshot(ctx)
	case "click":
		x, y := intArg(cmd.Args, "x"), intArg(cmd.Args, "y")
		return "", c.Click(ctx, x, y, stringArg(cmd.Args, "button"))
	case "double_click":
		x, y := intArg(cmd.Args, "x"), intArg(cmd.Args, "y")
		return "", c.DoubleClick(ctx, x, y, stringArg(cmd.Args, "button"))
	case "move":
		x, y := intArg(cmd.Args, "x"), intArg(cmd.Args, "y")
		return "", c.Move(ctx, x, y)
	case "type":
		return "", c.Type(ctx, stringArg(cmd.Args, "text"))
	case "press_key":
		return "", c.PressKey(ctx, stringArg(cmd.Args, "key"))
	case "status":
		return c.QueryStatus(ctx)
	case "pause":
		return "", c.Pause(ctx)
	case "resume":
		return "", c.Resume(ctx)
	case "powerdown":
		return "", c.Powerdown(ctx)
	}
	return "", fmt.Errorf("unsupported vm command %q", cmd.Name)
}

func stringArg(args map[string]any, key string) string {
	if value, ok := args[key].(string); ok {
		return value
	}
	return ""
}

func intArg(args map[string]any, key string) int {
	switch value := args[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	}
	return 0
}

var _ actuators.Driver = (*Client)(nil)
