package expr

import (
	"encoding/json"
	"strings"

	"github.com/zoeflow/ragcore/internal/ragerr"
)

// Render substitutes every "${...}" placeholder in tmpl with the string
// form of its evaluated expression against scope. Text outside placeholders
// is copied verbatim. Placeholders do not nest — the expression grammar has
// no brace syntax, so the first '}' after "${" always closes a placeholder
// (there is no escape for '}', even inside a string literal).
func Render(tmpl string, scope Scope) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(tmpl) {
		start := strings.Index(tmpl[i:], "${")
		if start < 0 {
			b.WriteString(tmpl[i:])
			break
		}
		start += i
		b.WriteString(tmpl[i:start])

		end := strings.IndexByte(tmpl[start+2:], '}')
		if end < 0 {
			return "", ragerr.Newf(ragerr.Validation, "expr: unterminated placeholder at position %d", start)
		}
		end += start + 2

		source := tmpl[start+2 : end]
		e, err := Parse(source)
		if err != nil {
			return "", err
		}
		v, err := Eval(e, scope)
		if err != nil {
			return "", err
		}
		b.WriteString(renderValue(v))

		i = end + 1
	}
	return b.String(), nil
}

// renderValue stringifies a placeholder's evaluated value for substitution
// into a template: scalars render plainly, objects/arrays render as JSON.
func renderValue(v any) string {
	switch v.(type) {
	case nil, string, float64, bool:
		return stringify(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return stringify(v)
		}
		return string(raw)
	}
}

// HasPlaceholder reports whether s contains at least one "${" sequence,
// a cheap pre-check flow nodes use to skip Render for static text.
func HasPlaceholder(s string) bool {
	return strings.Contains(s, "${")
}
