// Package vmc animates a virtual avatar over the Virtual Motion Capture
// protocol (OSC): facial expressions, a mouth animation synchronized with
// speech, and an ambient blink loop.
package vmc

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"github.com/fortyoneai/omni-core/core/actuators"
)

const (
	blendValAddress   = "/VMC/Ext/Blend/Val"
	blendApplyAddress = "/VMC/Ext/Blend/Apply"

	blinkInterval  = 3 * time.Second
	blinkDuration  = 120 * time.Millisecond
	mouthFrameRate = 30
	mouthFrequency = 4.0
)

type Client struct {
	client *osc.Client

	mu sync.Mutex

	closeCh   chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once

	tracker *actuators.Tracker
}

func NewClient(host string, port int) *Client {
	return &Client{
		client:  osc.NewClient(host, port),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
		tracker: actuators.NewTracker("vmc"),
	}
}

// Start launches the ambient blink loop. Safe to call more than once.
func (c *Client) Start(context.Context) {
	c.startOnce.Do(func() {
		go c.blinkLoop()
	})
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.closeCh) })
	select {
	case <-c.done:
	case <-time.After(time.Second):
	}
	return nil
}

func (c *Client) blinkLoop() {
	defer close(c.done)
	ticker := time.NewTicker(blinkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.closeCh:
			return
		case <-ticker.C:
			if err := c.blink(); err != nil {
				logger.Warn("Failed to send blink", "error", err)
			}
		}
	}
}

func (c *Client) blink() error {
	if err := c.sendBlend("Blink", 1.0); err != nil {
		return err
	}
	time.Sleep(blinkDuration)
	return c.sendBlend("Blink", 0.0)
}

// SetExpression applies a named expression preset, clearing all other
// expression blendshapes first.
func (c *Client) SetExpression(name string) error {
	preset, ok := expressions[name]
	if !ok {
		return fmt.Errorf("unknown expression %q", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, blend := range expressionBlends {
		if err := c.sendBlendLocked(blend, 0.0); err != nil {
			return err
		}
	}
	for blend, value := range preset {
		if err := c.sendBlendLocked(blend, value); err != nil {
			return err
		}
	}
	return c.applyLocked()
}

// Speak runs the mouth animation for roughly the time it takes to say the
// text. It blocks until the animation ends or the context is cancelled.
func (c *Client) Speak(ctx context.Context, text string) error {
	duration := speechDuration(text)
	ticker := time.NewTicker(time.Second / mouthFrameRate)
	defer ticker.Stop()
	startedAt := time.Now()

	for {
		select {
		case <-ctx.Done():
			c.closeMouth()
			return ctx.Err()
		case <-c.closeCh:
			c.closeMouth()
			return nil
		case <-ticker.C:
			elapsed := time.Since(startedAt)
			if elapsed >= duration {
				return c.closeMouth()
			}
			// Half-rectified sine keeps the mouth opening and closing
			// instead of inverting.
			phase := math.Sin(2 * math.Pi * mouthFrequency * elapsed.Seconds())
			value := float32(math.Max(0, phase))
			c.mu.Lock()
			err := c.sendBlendLocked("A", value)
			if err == nil {
				err = c.applyLocked()
			}
			c.mu.Unlock()
			if err != nil {
				return err
			}
		}
	}
}

func (c *Client) closeMouth() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sendBlendLocked("A", 0.0); err != nil {
		return err
	}
	return c.applyLocked()
}

func speechDuration(text string) time.Duration {
	duration := time.Duration(len([]rune(text))) * 60 * time.Millisecond
	if duration < time.Second {
		duration = time.Second
	}
	if duration > 30*time.Second {
		duration = 30 * time.Second
	}
	return duration
}

func (c *Client) sendBlend(name string, value float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sendBlendLocked(name, value); err != nil {
		return err
	}
	return c.applyLocked()
}

func (c *Client) sendBlendLocked(name string, value float32) error {
	msg := osc.NewMessage(blendValAddress)
	msg.Append(name)
	msg.Append(value)
	if err := c.client.Send(msg); err != nil {
		return actuators.Transient(fmt.Errorf("failed to send blendshape %q: %w", name, err))
	}
	return nil
}

func (c *Client) applyLocked() error {
	if err := c.client.Send(osc.NewMessage(blendApplyAddress)); err != nil {
		return actuators.Transient(fmt.Errorf("failed to apply blendshapes: %w", err))
	}
	return nil
}
