package fixedform

import "strings"

// LineKind is the statement shape a line was recognized as.
type LineKind int

const (
	// LineInert is anything outside the recognized subset (I/O, control flow, blank, ...).
	LineInert LineKind = iota
	LineComment
	LineHeader
	LineDeclaration
	LineAssignment
	LineCall
	LineContinuation
	// LineExpression is a statement that starts with an identifier and contains "="
	// without being a plain assignment, e.g. a logical IF or a DO loop. A logical
	// IF guarding an assignment carries that assignment's Target.
	LineExpression
)

var lineKindNames = [...]string{
	LineInert:        "inert",
	LineComment:      "comment",
	LineHeader:       "header",
	LineDeclaration:  "declaration",
	LineAssignment:   "assignment",
	LineCall:         "call",
	LineContinuation: "continuation",
	LineExpression:   "expression",
}

func (k LineKind) String() string {
	if int(k) < len(lineKindNames) {
		return lineKindNames[k]
	}
	return "unknown"
}

// Header is a parsed subroutine or function header.
type Header struct {
	Kind      Kind
	Name      string
	RawParams string
	Params    []string
}

// Line is the classification of one source line.
type Line struct {
	Kind LineKind
	// Code is the line with the comment suffix removed.
	Code     string
	Header   *Header
	Declared []string // LineDeclaration
	Target   string   // LineAssignment, guarded LineExpression: left-hand identifier, subscript stripped
	Callee   string   // LineCall, including one guarded by a logical IF
}

// CallContext reports whether f(...) tokens on this line are call candidates.
func (l Line) CallContext() bool {
	switch l.Kind {
	case LineAssignment, LineExpression, LineContinuation:
		return true
	default:
		return false
	}
}

// Classify matches one raw line against the statement shapes.
// Order matters: header before declaration (a function header starts
// with "double precision"), call before assignment.
func (d *Dialect) Classify(raw string) Line {
	raw = strings.TrimRight(raw, "\r\n")
	if d.maxColumn > 0 && len(raw) > d.maxColumn {
		raw = raw[:d.maxColumn]
	}
	if isFullLineComment(raw, d.commentDelim) {
		return Line{Kind: LineComment}
	}

	code := d.stripComment(raw)
	line := Line{Code: code}

	if m := d.header.FindStringSubmatch(code); m != nil {
		kind := KindSubroutine
		if strings.Contains(strings.ToLower(m[1]), "function") {
			kind = KindFunction
		}
		line.Kind = LineHeader
		line.Header = &Header{
			Kind:      kind,
			Name:      d.normalize(m[2]),
			RawParams: m[3],
			Params:    d.parseParams(m[3]),
		}
		return line
	}

	if m := d.declaration.FindStringSubmatch(code); m != nil {
		line.Kind = LineDeclaration
		line.Declared = d.parseDeclList(m[1])
		return line
	}

	if guarded, ok := d.logicalIfBody(code); ok {
		if m := d.callStmt.FindStringSubmatch(guarded); m != nil {
			line.Kind = LineCall
			line.Callee = d.normalize(m[1])
			return line
		}
		if m := d.assignment.FindStringSubmatch(guarded); m != nil && !d.Denied(m[1]) {
			line.Kind = LineExpression
			line.Target = d.normalize(m[1])
			return line
		}
	}

	if m := d.callStmt.FindStringSubmatch(code); m != nil {
		line.Kind = LineCall
		line.Callee = d.normalize(m[1])
		return line
	}

	if m := d.assignment.FindStringSubmatch(code); m != nil && !d.Denied(m[1]) {
		line.Kind = LineAssignment
		line.Target = d.normalize(m[1])
		return line
	}

	if d.continuation.MatchString(code) {
		line.Kind = LineContinuation
		return line
	}

	if d.expression.MatchString(code) {
		line.Kind = LineExpression
		return line
	}

	return line
}

// logicalIfBody returns the statement guarded by a logical IF, moved to
// column 7 so the statement patterns apply to it. A block IF ("then") and an
// unbalanced condition have no guarded statement.
func (d *Dialect) logicalIfBody(code string) (string, bool) {
	loc := d.logicalIf.FindStringIndex(code)
	if loc == nil {
		return "", false
	}
	text := blankLiterals(code)
	depth := 0
	for i := loc[1] - 1; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth > 0 {
				continue
			}
			rest := strings.TrimLeft(code[i+1:], " \t")
			if rest == "" || d.thenKeyword.MatchString(rest) {
				return "", false
			}
			return "      " + rest, true
		}
	}
	return "", false
}

// continued reports whether code carries a column-6 continuation marker.
func continued(code string) bool {
	if len(code) < 6 || strings.TrimLeft(code[:5], " ") != "" {
		return false
	}
	switch code[5] {
	case ' ', '\t', '0':
		return false
	}
	return true
}

// CallCandidates returns every identifier immediately followed by "(" on a
// call-context line, in order of appearance. Quoted literals are skipped.
// The caller decides which candidates are real calls.
func (d *Dialect) CallCandidates(l Line) []string {
	if !l.CallContext() {
		return nil
	}
	text := blankLiterals(l.Code)
	if l.Kind == LineContinuation && len(text) > 6 {
		// Column 6 holds the continuation marker, which may itself be a letter.
		text = "      " + text[6:]
	}
	matches := d.candidate.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, d.normalize(m[1]))
	}
	return names
}

// stripComment truncates raw at the first comment delimiter outside a quoted literal.
func (d *Dialect) stripComment(raw string) string {
	delim := d.commentDelim
	var quote byte
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case strings.HasPrefix(raw[i:], delim):
			return raw[:i]
		}
	}
	return raw
}

func (d *Dialect) parseParams(raw string) []string {
	tokens := d.paramToken.FindAllString(raw, -1)
	params := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		t = d.normalize(t)
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		params = append(params, t)
	}
	return params
}

// parseDeclList splits "a, b(3), c(n,m)" into identifiers, dropping array bounds.
func (d *Dialect) parseDeclList(list string) []string {
	var names []string
	for _, item := range strings.Split(stripParens(list), ",") {
		item = strings.TrimSpace(item)
		if d.ident.MatchString(item) {
			names = append(names, d.normalize(item))
		}
	}
	return names
}

// isFullLineComment recognizes fixed-form comment lines: c, C or * in
// column 1, or a line whose first non-blank text is the in-line delimiter.
func isFullLineComment(raw, delim string) bool {
	if raw == "" {
		return false
	}
	switch raw[0] {
	case 'c', 'C', '*':
		return true
	}
	trimmed := strings.TrimLeft(raw, " \t")
	return trimmed != "" && strings.HasPrefix(trimmed, delim)
}

// stripParens removes every parenthesized group, including nested ones.
func stripParens(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// blankLiterals replaces the contents of quoted literals with spaces so
// text inside strings is never mistaken for code. Offsets are preserved.
func blankLiterals(s string) string {
	if !strings.ContainsAny(s, `'"`) {
		return s
	}
	b := []byte(s)
	var quote byte
	for i, c := range b {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				b[i] = ' '
			}
		case c == '\'' || c == '"':
			quote = c
		}
	}
	return string(b)
}
