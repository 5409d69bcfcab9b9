package vmc

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fortyoneai/omni-core/core/actuators"
)

func (c *Client) Submit(ctx context.Context, cmd actuators.Command) (actuators.Ticket, error) {
	ticket := c.tracker.Begin(ctx, func(ctx context.Context) (string, error) {
		ctx, span := tracer.Start(ctx, "execute avatar command")
		defer span.End()
		span.SetAttributes(attribute.String("command.name", cmd.Name))

		err := c.run(ctx, cmd)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "avatar command failed")
		}
		return "", err
	})
	return ticket, nil
}

func (c *Client) Poll(_ context.Context, ticket actuators.Ticket) (*actuators.Result, error) {
	return c.tracker.Poll(ticket)
}

func (c *Client) Abort(_ context.Context, ticket actuators.Ticket) error {
	return c.tracker.Abort(ticket)
}

func (c *Client) run(ctx context.Context, cmd actuators.Command) error {
	switch cmd.Name {
	case "expression":
		name, _ := cmd.Args["name"].(string)
		if name == "" {
			name, _ = cmd.Args["expression"].(string)
		}
		return c.SetExpression(name)
	case "speak":
		text, _ := cmd.Args["text"].(string)
		return c.Speak(ctx, text)
	case "look_at":
		x, _ := cmd.Args["x"].(float64)
		y, _ := cmd.Args["y"].(float64)
		return c.LookAt(x, y)
	case "nod":
		return c.Nod(ctx)
	case "shake_head":
		return c.ShakeHead(ctx)
	case "reset":
		return c.Reset()
	}
	return fmt.Errorf("unsupported avatar command %q", cmd.Name)
}

var _ actuators.Driver = (*Client)(nil)
