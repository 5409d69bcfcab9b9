package qmp

import (
	"fmt"
	"strings"
	"unicode"
)

// plainQcodes maps runes that translate to a single unshifted key.
var plainQcodes = map[rune]string{
	' ':  "spc",
	'\n': "ret",
	'\t': "tab",
	'-':  "minus",
	'=':  "equal",
	'[':  "bracket_left",
	']':  "bracket_right",
	';':  "semicolon",
	'\'': "apostrophe",
	'`':  "grave_accent",
	'\\': "backslash",
	',':  "comma",
	'.':  "dot",
	'/':  "slash",
}

// shiftedQcodes maps runes produced by holding shift on a US layout.
var shiftedQcodes = map[rune]string{
	'!': "1",
	'@': "2",
	'#': "3",
	'$': "4",
	'%': "5",
	'^': "6",
	'&': "7",
	'*': "8",
	'(': "9",
	')': "0",
	'_': "minus",
	'+': "equal",
	'{': "bracket_left",
	'}': "bracket_right",
	':': "semicolon",
	'"': "apostrophe",
	'~': "grave_accent",
	'|': "backslash",
	'<': "comma",
	'>': "dot",
	'?': "slash",
}

// comboAliases normalizes key names accepted in combos to qcodes.
var comboAliases = map[string]string{
	"ctrl":      "ctrl",
	"control":   "ctrl",
	"alt":       "alt",
	"shift":     "shift",
	"meta":      "meta_l",
	"super":     "meta_l",
	"win":       "meta_l",
	"enter":     "ret",
	"return":    "ret",
	"esc":       "esc",
	"escape":    "esc",
	"tab":       "tab",
	"space":     "spc",
	"backspace": "backspace",
	"delete":    "delete",
	"del":       "delete",
	"insert":    "insert",
	"home":      "home",
	"end":       "end",
	"pageup":    "pgup",
	"pagedown":  "pgdn",
	"up":        "up",
	"down":      "down",
	"left":      "left",
	"right":     "right",
}

// qcodesForRune resolves a typed character into the key chord producing it
// on a US layout.
func qcodesForRune(r rune) ([]string, bool) {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return []string{string(r)}, true
	case r >= 'A' && r <= 'Z':
		return []string{"shift", string(unicode.ToLower(r))}, true
	}
	if code, ok := plainQcodes[r]; ok {
		return []string{code}, true
	}
	if code, ok := shiftedQcodes[r]; ok {
		return []string{"shift", code}, true
	}
	return nil, false
}

// parseCombo splits a combination like "ctrl-shift-t" or "alt+f4" into
// qcodes, modifiers first.
func parseCombo(combo string) ([]string, error) {
	combo = strings.ToLower(strings.TrimSpace(combo))
	if combo == "" {
		return nil, fmt.Errorf("empty key combination")
	}

	parts := strings.FieldsFunc(combo, func(r rune) bool {
		return r == '-' || r == '+'
	})
	// A bare "-" or "+" is the key itself, not a separator.
	if len(parts) == 0 {
		parts = []string{combo}
	}

	var keys []string
	for _, part := range parts {
		if code, ok := comboAliases[part]; ok {
			keys = append(keys, code)
			continue
		}
		if len(part) == 1 {
			chord, ok := qcodesForRune(rune(part[0]))
			if !ok {
				return nil, fmt.Errorf("unknown key %q in combination %q", part, combo)
			}
			keys = append(keys, chord...)
			continue
		}
		// Function keys and anything else pass through as qcodes.
		if strings.HasPrefix(part, "f") || isKnownQcode(part) {
			keys = append(keys, part)
			continue
		}
		return nil, fmt.Errorf("unknown key %q in combination %q", part, combo)
	}
	return keys, nil
}

func isKnownQcode(name string) bool {
	for _, code := range plainQcodes {
		if code == name {
			return true
		}
	}
	return false
}
