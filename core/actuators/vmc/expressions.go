package vmc

// expressionBlends lists every blendshape touched by presets so switching
// expressions can zero the previous one.
var expressionBlends = []string{"Joy", "Sorrow", "Angry", "Surprised", "Fun"}

// expressions maps preset names to VRM blendshape weights.
var expressions = map[string]map[string]float32{
	"neutral":   {},
	"happy":     {"Joy": 1.0},
	"sad":       {"Sorrow": 1.0},
	"angry":     {"Angry": 1.0},
	"surprised": {"Surprised": 1.0},
	"relaxed":   {"Fun": 1.0},
	"thinking":  {"Fun": 0.3, "Sorrow": 0.2},
	"listening": {"Fun": 0.2},
	"talking":   {"Joy": 0.4},
}

// ExpressionNames returns the preset names accepted by SetExpression.
func ExpressionNames() []string {
	names := make([]string, 0, len(expressions))
	for name := range expressions {
		names = append(names, name)
	}
	return names
}
