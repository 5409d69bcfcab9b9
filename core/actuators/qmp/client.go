// Package qmp drives a QEMU virtual machine over the QEMU Machine Protocol
// on a unix socket: pointer and keyboard injection, screendumps, and
// lifecycle control (pause, resume, powerdown).
package qmp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fortyoneai/omni-core/core/actuators"
)

const (
	defaultDialTimeout    = 5 * time.Second
	defaultCommandTimeout = 10 * time.Second

	// Absolute pointer events use a fixed virtual coordinate space
	// regardless of guest resolution.
	absAxisMax = 32767
)

type Client struct {
	socketPath    string
	dialTimeout   time.Duration
	screenshotDir string
	screenWidth   int
	screenHeight  int

	mu   sync.Mutex
	conn net.Conn
	br   *bufio.Reader

	tracker *actuators.Tracker
}

type Option func(*Client)

func WithScreenSize(width, height int) Option {
	return func(c *Client) {
		c.screenWidth = width
		c.screenHeight = height
	}
}

func WithScreenshotDir(dir string) Option {
	return func(c *Client) { c.screenshotDir = dir }
}

func WithDialTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.dialTimeout = timeout }
}

func NewClient(socketPath string, opts ...Option) *Client {
	client := &Client{
		socketPath:    socketPath,
		dialTimeout:   defaultDialTimeout,
		screenshotDir: os.TempDir(),
		screenWidth:   1280,
		screenHeight:  800,
		tracker:       actuators.NewTracker("qmp"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Connect dials the monitor socket, consumes the greeting and negotiates
// capabilities. The connection stays open until Close.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "connect qmp")
	defer span.End()
	span.SetAttributes(attribute.String("qmp.socket_path", c.socketPath))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to dial qmp socket")
		return fmt.Errorf("failed to dial qmp socket: %w", err)
	}
	c.conn = conn
	c.br = bufio.NewReader(conn)

	// The monitor opens with a greeting that must be read before any
	// command, then requires capabilities negotiation.
	if _, err := c.readMessage(); err != nil {
		conn.Close()
		c.conn = nil
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read qmp greeting")
		return fmt.Errorf("failed to read qmp greeting: %w", err)
	}
	if _, err := c.executeLocked(ctx, "qmp_capabilities", nil); err != nil {
		conn.Close()
		c.conn = nil
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to negotiate qmp capabilities")
		return fmt.Errorf("failed to negotiate qmp capabilities: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.br = nil
	return err
}

type response struct {
	Return json.RawMessage `json:"return"`
	Error  *struct {
		Class string `json:"class"`
		Desc  string `json:"desc"`
	} `json:"error"`
	Event string `json:"event"`
}

func (c *Client) readMessage() (*response, error) {
	line, err := c.br.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	var msg response
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode qmp message: %w", err)
	}
	return &msg, nil
}

func (c *Client) execute(ctx context.Context, command string, args map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.executeLocked(ctx, command, args)
}

func (c *Client) executeLocked(ctx context.Context, command string, args map[string]any) (json.RawMessage, error) {
	if c.conn == nil {
		return nil, actuators.Transient(fmt.Errorf("not connected to qmp socket"))
	}

	deadline := time.Now().Add(defaultCommandTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetDeadline(deadline)
	defer c.conn.SetDeadline(time.Time{})

	payload := map[string]any{"execute": command}
	if args != nil {
		payload["arguments"] = args
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qmp command: %w", err)
	}
	if _, err := c.conn.Write(append(raw, '\n')); err != nil {
		c.conn.Close()
		c.conn = nil
		return nil, actuators.Transient(fmt.Errorf("failed to send qmp command: %w", err))
	}

	// Async guest events can interleave with the reply, skip them until
	// a return or error arrives.
	for {
		msg, err := c.readMessage()
		if err != nil {
			c.conn.Close()
			c.conn = nil
			return nil, actuators.Transient(fmt.Errorf("failed to read qmp response: %w", err))
		}
		if msg.Event != "" {
			logger.Debug("Skipping qmp event", "event", msg.Event)
			continue
		}
		if msg.Error != nil {
			return nil, fmt.Errorf("qmp error (%s): %s", msg.Error.Class, msg.Error.Desc)
		}
		return msg.Return, nil
	}
}

// Screenshot dumps the guest framebuffer to a PNG file and returns its path.
func (c *Client) Screenshot(ctx context.Context) (string, error) {
	path := filepath.Join(c.screenshotDir, fmt.Sprintf("screendump-%d.png", time.Now().UnixNano()))
	_, err := c.execute(ctx, "screendump", map[string]any{
		"filename": path,
		"format":   "png",
	})
	if err != nil {
		return "", fmt.Errorf("failed to capture screendump: %w", err)
	}
	return path, nil
}

// Click moves the pointer to guest pixel coordinates and presses the given
// button. Coordinates are scaled into the absolute axis range.
func (c *Client) Click(ctx context.Context, x, y int, button string) error {
	if button == "" {
		button = "left"
	}
	absX := scaleAxis(x, c.screenWidth)
	absY := scaleAxis(y, c.screenHeight)

	move := []map[string]any{
		inputAbsEvent("x", absX),
		inputAbsEvent("y", absY),
	}
	if _, err := c.execute(ctx, "input-send-event", map[string]any{"events": move}); err != nil {
		return fmt.Errorf("failed to move pointer: %w", err)
	}
	for _, down := range []bool{true, false} {
		events := []map[string]any{inputBtnEvent(button, down)}
		if _, err := c.execute(ctx, "input-send-event", map[string]any{"events": events}); err != nil {
			return fmt.Errorf("failed to send button event: %w", err)
		}
	}
	return nil
}

// DoubleClick sends two clicks in quick succession.
func (c *Client) DoubleClick(ctx context.Context, x, y int, button string) error {
	if err := c.Click(ctx, x, y, button); err != nil {
		return err
	}
	time.Sleep(80 * time.Millisecond)
	return c.Click(ctx, x, y, button)
}

// Move positions the pointer without pressing anything.
func (c *Client) Move(ctx context.Context, x, y int) error {
	events := []map[string]any{
		inputAbsEvent("x", scaleAxis(x, c.screenWidth)),
		inputAbsEvent("y", scaleAxis(y, c.screenHeight)),
	}
	if _, err := c.execute(ctx, "input-send-event", map[string]any{"events": events}); err != nil {
		return fmt.Errorf("failed to move pointer: %w", err)
	}
	return nil
}

// Type injects text one character at a time. Characters without a qcode
// mapping are skipped.
func (c *Client) Type(ctx context.Context, text string) error {
	for _, r := range text {
		keys, ok := qcodesForRune(r)
		if !ok {
			logger.Warn("Skipping untypeable character", "char", string(r))
			continue
		}
		if err := c.pressKeys(ctx, keys); err != nil {
			return fmt.Errorf("failed to type character %q: %w", r, err)
		}
		// Give the guest time to process each keystroke.
		time.Sleep(20 * time.Millisecond)
	}
	return nil
}

// PressKey sends a key combination like "ctrl-c" or "alt-f4" as a single
// chord.
func (c *Client) PressKey(ctx context.Context, combo string) error {
	keys, err := parseCombo(combo)
	if err != nil {
		return err
	}
	return c.pressKeys(ctx, keys)
}

func (c *Client) pressKeys(ctx context.Context, qcodes []string) error {
	var events []map[string]any
	for _, code := range qcodes {
		events = append(events, inputKeyEvent(code, true))
	}
	for i := len(qcodes) - 1; i >= 0; i-- {
		events = append(events, inputKeyEvent(qcodes[i], false))
	}
	if _, err := c.execute(ctx, "input-send-event", map[string]any{"events": events}); err != nil {
		return fmt.Errorf("failed to send key events: %w", err)
	}
	return nil
}

// QueryStatus reports the guest run state ("running", "paused", ...).
func (c *Client) QueryStatus(ctx context.Context) (string, error) {
	raw, err := c.execute(ctx, "query-status", nil)
	if err != nil {
		return "", fmt.Errorf("failed to query status: %w", err)
	}
	var status struct {
		Status  string `json:"status"`
		Running bool   `json:"running"`
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		return "", fmt.Errorf("failed to decode status: %w", err)
	}
	return status.Status, nil
}

func (c *Client) Pause(ctx context.Context) error {
	_, err := c.execute(ctx, "stop", nil)
	return err
}

func (c *Client) Resume(ctx context.Context) error {
	_, err := c.execute(ctx, "cont", nil)
	return err
}

func (c *Client) Powerdown(ctx context.Context) error {
	_, err := c.execute(ctx, "system_powerdown", nil)
	return err
}

func scaleAxis(value, max_ int) int {
	if max_ <= 1 {
		return 0
	}
	scaled := value * absAxisMax / (max_ - 1)
	if scaled < 0 {
		return 0
	}
	if scaled > absAxisMax {
		return absAxisMax
	}
	return scaled
}

func inputAbsEvent(axis string, value int) map[string]any {
	return map[string]any{
		"type": "abs",
		"data": map[string]any{"axis": axis, "value": value},
	}
}

func inputBtnEvent(button string, down bool) map[string]any {
	return map[string]any{
		"type": "btn",
		"data": map[string]any{"button": button, "down": down},
	}
}

func inputKeyEvent(qcode string, down bool) map[string]any {
	return map[string]any{
		"type": "key",
		"data": map[string]any{
			"key":  map[string]any{"type": "qcode", "data": qcode},
			"down": down,
		},
	}
}
