package tal

import (
	"regexp"
	"strings"

	talerrors "github.com/vango-dev/tal/internal/errors"
)

var (
	keyExpression  = regexp.MustCompile(`^(\S+)\s+(.+)$`)
	localGlobal    = regexp.MustCompile(`^(?:(local|global)\s+)?(\S+)\s+(.+)$`)
	textStructure  = regexp.MustCompile(`^(?:(text|structure)\s+)?(.*)$`)
	repeatVariable = regexp.MustCompile(`^(\$?[a-zA-Z_][a-zA-Z0-9_]*)\s+(.+)$`)
)

// splitStatements splits a ';'-separated statement list. ";;" stands for a
// literal semicolon. Empty parts are dropped.
func splitStatements(text string) []string {
	var parts []string
	var cur strings.Builder
	for i := 0; i < len(text); i++ {
		if text[i] != ';' {
			cur.WriteByte(text[i])
			continue
		}
		if i+1 < len(text) && text[i+1] == ';' {
			cur.WriteByte(';')
			i++
			continue
		}
		if s := strings.TrimSpace(cur.String()); s != "" {
			parts = append(parts, s)
		}
		cur.Reset()
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		parts = append(parts, s)
	}
	return parts
}

// pairs parses "name expression; ..." lists.
func pairs(statement, text string) ([][2]string, error) {
	var out [][2]string
	for _, part := range splitStatements(text) {
		m := keyExpression.FindStringSubmatch(part)
		if m == nil {
			return nil, badStatement(statement, part)
		}
		out = append(out, [2]string{m[1], m[2]})
	}
	return out, nil
}

// mode splits an optional text/structure keyword off a content expression.
func mode(text string) (structure bool, expr string) {
	m := textStructure.FindStringSubmatch(strings.TrimSpace(text))
	return m[1] == "structure", m[2]
}

func badStatement(statement, text string) error {
	return talerrors.New(talerrors.CodeBadStatement).
		WithDetailf("%s: can't parse %q", statement, text)
}
