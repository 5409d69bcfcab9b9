package orchestration

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
)

type IntentKind string

const (
	IntentKindVM     IntentKind = "vm-command"
	IntentKindAvatar IntentKind = "avatar-command"
	IntentKindMemory IntentKind = "memory-command"
)

type Origin string

const (
	OriginUserTurn   Origin = "user-turn"
	OriginAutonomous Origin = "autonomous"
)

// ActionIntent is a parsed or proposed command destined for an actuator
// gateway. Consumed exactly once.
type ActionIntent struct {
	Kind     IntentKind
	Name     string
	Args     map[string]any
	Origin   Origin
	IssuedAt time.Time
}

// Tool argument shapes. The reflected schemas validate parsed calls and
// describe the vocabulary in the session instructions.

type clickArgs struct {
	X      int    `json:"x" jsonschema:"description=Horizontal pixel coordinate"`
	Y      int    `json:"y" jsonschema:"description=Vertical pixel coordinate"`
	Button string `json:"button,omitempty" jsonschema:"description=Mouse button,enum=left,enum=right,enum=middle"`
}

type typeArgs struct {
	Text string `json:"text" jsonschema:"description=Text to type into the VM"`
}

type pressKeyArgs struct {
	Key string `json:"key" jsonschema:"description=Key or combination like ctrl-c"`
}

type moveArgs struct {
	X int `json:"x" jsonschema:"description=Horizontal pixel coordinate"`
	Y int `json:"y" jsonschema:"description=Vertical pixel coordinate"`
}

type screenshotArgs struct{}

type noArgs struct{}

type expressionArgs struct {
	Expression string `json:"expression" jsonschema:"description=Expression preset name,enum=neutral,enum=happy,enum=sad,enum=angry,enum=surprised,enum=relaxed,enum=thinking,enum=listening,enum=talking"`
}

type speakArgs struct {
	Text string `json:"text" jsonschema:"description=Text the avatar mouths along to"`
}

type lookAtArgs struct {
	X float64 `json:"x" jsonschema:"description=Horizontal gaze target between -1 and 1"`
	Y float64 `json:"y" jsonschema:"description=Vertical gaze target between -1 and 1"`
}

type memoryStoreArgs struct {
	Content    string  `json:"content" jsonschema:"description=What to remember"`
	Importance float64 `json:"importance,omitempty" jsonschema:"description=Importance weight between 0 and 1"`
}

type memoryRecallArgs struct {
	Query string `json:"query" jsonschema:"description=What to look for"`
}

type toolDefinition struct {
	kind       IntentKind
	actionName string
	schema     *jsonschema.Schema
}

var toolRegistry = buildToolRegistry()

func buildToolRegistry() map[string]toolDefinition {
	reflector := jsonschema.Reflector{DoNotReference: true}
	reflect := func(v any) *jsonschema.Schema { return reflector.Reflect(v) }

	return map[string]toolDefinition{
		"vm_click":          {kind: IntentKindVM, actionName: "click", schema: reflect(&clickArgs{})},
		"vm_double_click":   {kind: IntentKindVM, actionName: "double_click", schema: reflect(&clickArgs{})},
		"vm_move":           {kind: IntentKindVM, actionName: "move", schema: reflect(&moveArgs{})},
		"vm_type":           {kind: IntentKindVM, actionName: "type", schema: reflect(&typeArgs{})},
		"vm_press_key":      {kind: IntentKindVM, actionName: "press_key", schema: reflect(&pressKeyArgs{})},
		"vm_screenshot":     {kind: IntentKindVM, actionName: "screenshot", schema: reflect(&screenshotArgs{})},
		"vm_pause":          {kind: IntentKindVM, actionName: "pause", schema: reflect(&noArgs{})},
		"vm_resume":         {kind: IntentKindVM, actionName: "resume", schema: reflect(&noArgs{})},
		"vm_powerdown":      {kind: IntentKindVM, actionName: "powerdown", schema: reflect(&noArgs{})},
		"avatar_expression": {kind: IntentKindAvatar, actionName: "expression", schema: reflect(&expressionArgs{})},
		"avatar_speak":      {kind: IntentKindAvatar, actionName: "speak", schema: reflect(&speakArgs{})},
		"avatar_look_at":    {kind: IntentKindAvatar, actionName: "look_at", schema: reflect(&lookAtArgs{})},
		"avatar_nod":        {kind: IntentKindAvatar, actionName: "nod", schema: reflect(&noArgs{})},
		"avatar_shake_head": {kind: IntentKindAvatar, actionName: "shake_head", schema: reflect(&noArgs{})},
		"avatar_reset":      {kind: IntentKindAvatar, actionName: "reset", schema: reflect(&noArgs{})},
		"memory_store":      {kind: IntentKindMemory, actionName: "store", schema: reflect(&memoryStoreArgs{})},
		"memory_recall":     {kind: IntentKindMemory, actionName: "recall", schema: reflect(&memoryRecallArgs{})},
	}
}

// ToolSchemas exposes the reflected argument schemas keyed by tool name,
// used to describe the vocabulary to the model.
func ToolSchemas() map[string]*jsonschema.Schema {
	schemas := make(map[string]*jsonschema.Schema, len(toolRegistry))
	for name, def := range toolRegistry {
		schemas[name] = def.schema
	}
	return schemas
}

var toolCallPattern = regexp.MustCompile(`(?s)<tool_call>(.*?)</tool_call>`)

// parseActionIntents extracts tool calls embedded in a reply, validates
// them against their schemas and returns the intents plus the reply text
// with the tool call blocks stripped. Malformed or unknown calls are
// skipped with a log line, never fatal.
func parseActionIntents(text string, origin Origin) ([]ActionIntent, string) {
	var intents []ActionIntent

	stripped := toolCallPattern.ReplaceAllStringFunc(text, func(block string) string {
		body := toolCallPattern.FindStringSubmatch(block)[1]

		var call struct {
			Name string         `json:"name"`
			Args map[string]any `json:"args"`
		}
		if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &call); err != nil {
			logger.Warn("Skipping malformed tool call", "error", err)
			return ""
		}

		intent, err := intentFromCall(call.Name, call.Args, origin)
		if err != nil {
			logger.Warn("Skipping invalid tool call", "tool", call.Name, "error", err)
			return ""
		}
		intents = append(intents, intent)
		return ""
	})

	return intents, strings.TrimSpace(stripped)
}

func intentFromCall(name string, args map[string]any, origin Origin) (ActionIntent, error) {
	def, ok := toolRegistry[name]
	if !ok {
		return ActionIntent{}, fmt.Errorf("unknown tool %q", name)
	}
	if err := validateArgs(def.schema, args); err != nil {
		return ActionIntent{}, err
	}
	return ActionIntent{
		Kind:     def.kind,
		Name:     def.actionName,
		Args:     args,
		Origin:   origin,
		IssuedAt: time.Now(),
	}, nil
}

// validateArgs checks the schema's required properties are present. Shape
// mismatches beyond that are the actuator's problem to report.
func validateArgs(schema *jsonschema.Schema, args map[string]any) error {
	for _, required := range schema.Required {
		if _, ok := args[required]; !ok {
			return fmt.Errorf("missing required argument %q", required)
		}
	}
	return nil
}
