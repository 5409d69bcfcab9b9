package orchestration

import (
	"testing"
)

func TestParseActionIntentsExtractsAndStrips(t *testing.T) {
	reply := "Let me click that for you. " +
		`<tool_call>{"name": "vm_click", "args": {"x": 100, "y": 200}}</tool_call>` +
		" Done."

	intents, spoken := parseActionIntents(reply, OriginUserTurn)
	if len(intents) != 1 {
		t.Fatalf("expected one intent, got %d", len(intents))
	}
	if intents[0].Kind != IntentKindVM || intents[0].Name != "click" {
		t.Fatalf("unexpected intent %+v", intents[0])
	}
	if intents[0].Origin != OriginUserTurn {
		t.Fatalf("expected user-turn origin, got %s", intents[0].Origin)
	}
	if got, want := intents[0].Args["x"], float64(100); got != want {
		t.Fatalf("expected x=%v, got %v", want, got)
	}
	if spoken != "Let me click that for you.  Done." {
		t.Fatalf("unexpected spoken text %q", spoken)
	}
}

func TestParseActionIntentsPreservesOrder(t *testing.T) {
	reply := `<tool_call>{"name": "vm_type", "args": {"text": "hello"}}</tool_call>` + "\n" +
		`<tool_call>{"name": "vm_press_key", "args": {"key": "ctrl-s"}}</tool_call>` + "\n" +
		`<tool_call>{"name": "avatar_expression", "args": {"expression": "happy"}}</tool_call>`

	intents, spoken := parseActionIntents(reply, OriginUserTurn)
	if len(intents) != 3 {
		t.Fatalf("expected three intents, got %d", len(intents))
	}
	names := []string{"type", "press_key", "expression"}
	for i, intent := range intents {
		if intent.Name != names[i] {
			t.Fatalf("expected intent %d to be %s, got %s", i, names[i], intent.Name)
		}
	}
	if intents[2].Kind != IntentKindAvatar {
		t.Fatalf("expected avatar kind, got %s", intents[2].Kind)
	}
	if spoken != "" {
		t.Fatalf("expected empty spoken text, got %q", spoken)
	}
}

func TestParseActionIntentsSkipsMalformedAndUnknown(t *testing.T) {
	reply := "Sure. " +
		`<tool_call>not json at all</tool_call>` +
		`<tool_call>{"name": "vm_reboot", "args": {}}</tool_call>` +
		`<tool_call>{"name": "memory_store", "args": {"content": "the wifi password is hunter2"}}</tool_call>`

	intents, spoken := parseActionIntents(reply, OriginUserTurn)
	if len(intents) != 1 {
		t.Fatalf("expected the one valid intent, got %d", len(intents))
	}
	if intents[0].Kind != IntentKindMemory || intents[0].Name != "store" {
		t.Fatalf("unexpected intent %+v", intents[0])
	}
	if spoken != "Sure." {
		t.Fatalf("expected malformed blocks stripped, got %q", spoken)
	}
}

func TestParseActionIntentsRejectsMissingRequiredArgs(t *testing.T) {
	reply := `<tool_call>{"name": "vm_click", "args": {"x": 10}}</tool_call>`

	intents, _ := parseActionIntents(reply, OriginUserTurn)
	if len(intents) != 0 {
		t.Fatalf("expected click without y to be rejected, got %d intents", len(intents))
	}
}

func TestParseActionIntentsWithoutCallsLeavesTextAlone(t *testing.T) {
	intents, spoken := parseActionIntents("Just talking, no actions here.", OriginUserTurn)
	if len(intents) != 0 {
		t.Fatalf("expected no intents, got %d", len(intents))
	}
	if spoken != "Just talking, no actions here." {
		t.Fatalf("unexpected spoken text %q", spoken)
	}
}

func TestToolSchemasCoverVocabulary(t *testing.T) {
	schemas := ToolSchemas()
	for _, name := range []string{
		"vm_click", "vm_double_click", "vm_move", "vm_type", "vm_press_key",
		"vm_screenshot", "vm_pause", "vm_resume", "vm_powerdown",
		"avatar_expression", "avatar_speak", "avatar_look_at",
		"avatar_nod", "avatar_shake_head", "avatar_reset",
		"memory_store", "memory_recall",
	} {
		if schemas[name] == nil {
			t.Fatalf("expected schema for %s", name)
		}
	}

	click := schemas["vm_click"]
	required := map[string]bool{}
	for _, name := range click.Required {
		required[name] = true
	}
	if !required["x"] || !required["y"] {
		t.Fatalf("expected x and y required for vm_click, got %v", click.Required)
	}
	if required["button"] {
		t.Fatalf("expected button to be optional for vm_click")
	}
}

func TestParsedIntentsReachEveryDriverCommand(t *testing.T) {
	cases := []struct {
		call string
		kind IntentKind
		name string
	}{
		{`{"name": "vm_double_click", "args": {"x": 4, "y": 8}}`, IntentKindVM, "double_click"},
		{`{"name": "vm_move", "args": {"x": 1, "y": 2}}`, IntentKindVM, "move"},
		{`{"name": "vm_pause", "args": {}}`, IntentKindVM, "pause"},
		{`{"name": "vm_resume", "args": {}}`, IntentKindVM, "resume"},
		{`{"name": "vm_powerdown", "args": {}}`, IntentKindVM, "powerdown"},
		{`{"name": "avatar_look_at", "args": {"x": 0.5, "y": -0.2}}`, IntentKindAvatar, "look_at"},
		{`{"name": "avatar_nod", "args": {}}`, IntentKindAvatar, "nod"},
		{`{"name": "avatar_shake_head", "args": {}}`, IntentKindAvatar, "shake_head"},
		{`{"name": "avatar_reset", "args": {}}`, IntentKindAvatar, "reset"},
	}
	for _, tc := range cases {
		intents, _ := parseActionIntents("<tool_call>"+tc.call+"</tool_call>", OriginUserTurn)
		if len(intents) != 1 {
			t.Fatalf("expected one intent for %s, got %d", tc.call, len(intents))
		}
		if intents[0].Kind != tc.kind || intents[0].Name != tc.name {
			t.Fatalf("expected %s/%s, got %s/%s", tc.kind, tc.name, intents[0].Kind, intents[0].Name)
		}
	}
}
