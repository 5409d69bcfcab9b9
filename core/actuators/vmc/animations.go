package vmc

import (
	"context"
	"math"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

const (
	bonePosAddress = "/VMC/Ext/Bone/Pos"
	headBone       = "Head"

	gestureFrameRate = 30
	gestureDuration  = 1200 * time.Millisecond
	gestureAmplitude = 0.25
)

// LookAt turns the head toward a normalized screen position, x and y in
// [-1, 1] with (0, 0) straight ahead.
func (c *Client) LookAt(x, y float64) error {
	x = clamp(x, -1, 1)
	y = clamp(y, -1, 1)
	yaw := x * gestureAmplitude
	pitch := -y * gestureAmplitude

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sendHeadRotationLocked(pitch, yaw); err != nil {
		return err
	}
	return c.applyLocked()
}

// Nod pitches the head down and back up twice.
func (c *Client) Nod(ctx context.Context) error {
	return c.gesture(ctx, func(phase float64) (pitch, yaw float64) {
		return gestureAmplitude * math.Sin(2*math.Pi*2*phase), 0
	})
}

// ShakeHead turns the head side to side twice.
func (c *Client) ShakeHead(ctx context.Context) error {
	return c.gesture(ctx, func(phase float64) (pitch, yaw float64) {
		return 0, gestureAmplitude * math.Sin(2*math.Pi*2*phase)
	})
}

// Reset returns the avatar to a neutral face and a straight head.
func (c *Client) Reset() error {
	if err := c.SetExpression("neutral"); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sendBlendLocked("A", 0.0); err != nil {
		return err
	}
	if err := c.sendHeadRotationLocked(0, 0); err != nil {
		return err
	}
	return c.applyLocked()
}

func (c *Client) gesture(ctx context.Context, rotation func(phase float64) (pitch, yaw float64)) error {
	ticker := time.NewTicker(time.Second / gestureFrameRate)
	defer ticker.Stop()
	startedAt := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closeCh:
			return nil
		case <-ticker.C:
			elapsed := time.Since(startedAt)
			if elapsed >= gestureDuration {
				c.mu.Lock()
				err := c.sendHeadRotationLocked(0, 0)
				if err == nil {
					err = c.applyLocked()
				}
				c.mu.Unlock()
				return err
			}
			pitch, yaw := rotation(float64(elapsed) / float64(gestureDuration))
			c.mu.Lock()
			err := c.sendHeadRotationLocked(pitch, yaw)
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

// sendHeadRotationLocked sends the head bone with a quaternion built from
// pitch (x) and yaw (y) in radians. Caller holds the lock.
func (c *Client) sendHeadRotationLocked(pitch, yaw float64) error {
	halfPitch, halfYaw := pitch/2, yaw/2
	qx := float32(math.Sin(halfPitch) * math.Cos(halfYaw))
	qy := float32(math.Cos(halfPitch) * math.Sin(halfYaw))
	qz := float32(-math.Sin(halfPitch) * math.Sin(halfYaw))
	qw := float32(math.Cos(halfPitch) * math.Cos(halfYaw))

	msg := osc.NewMessage(bonePosAddress)
	msg.Append(headBone)
	msg.Append(float32(0)) // position stays anchored
	msg.Append(float32(0))
	msg.Append(float32(0))
	msg.Append(qx)
	msg.Append(qy)
	msg.Append(qz)
	msg.Append(qw)
	if err := c.client.Send(msg); err != nil {
		return err
	}
	return nil
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
