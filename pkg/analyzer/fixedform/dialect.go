package fixedform

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const identPattern = `[a-zA-Z_][a-zA-Z0-9_]*`

// DefaultDeclarationKeywords start a type declaration statement.
var DefaultDeclarationKeywords = []string{"double precision", "dimension", "logical"}

// DefaultDeniedKeywords are never call targets even when followed by "(".
var DefaultDeniedKeywords = []string{
	"if", "elseif", "while", "do",
	"read", "write", "print", "open", "close", "inquire",
	"rewind", "backspace", "endfile", "format",
	"goto", "to", "data", "common", "equivalence", "dimension",
	"return", "stop", "call", "then",
}

// Dialect holds the compiled statement patterns and keyword tables.
// A Dialect is immutable once built and safe for concurrent use.
type Dialect struct {
	ignoreCase   bool
	commentDelim string
	maxColumn    int
	declKeywords []string
	denied       map[string]struct{}

	header       *regexp.Regexp
	declaration  *regexp.Regexp
	assignment   *regexp.Regexp
	callStmt     *regexp.Regexp
	logicalIf    *regexp.Regexp
	thenKeyword  *regexp.Regexp
	expression   *regexp.Regexp
	continuation *regexp.Regexp
	candidate    *regexp.Regexp
	paramToken   *regexp.Regexp
	ident        *regexp.Regexp
}

// DialectOption configures a Dialect before it is compiled.
type DialectOption func(*Dialect)

// WithIgnoreCase matches keywords case-insensitively and folds identifiers to lower case.
func WithIgnoreCase() DialectOption {
	return func(d *Dialect) {
		d.ignoreCase = true
	}
}

// WithCommentDelimiter sets the in-line comment delimiter (default "!").
func WithCommentDelimiter(delim string) DialectOption {
	return func(d *Dialect) {
		if delim != "" {
			d.commentDelim = delim
		}
	}
}

// WithMaxColumn ignores text past the given column (0 = no limit).
func WithMaxColumn(col int) DialectOption {
	return func(d *Dialect) {
		if col > 0 {
			d.maxColumn = col
		}
	}
}

// WithDeclarationKeywords adds declaration keywords to the defaults.
func WithDeclarationKeywords(keywords ...string) DialectOption {
	return func(d *Dialect) {
		d.declKeywords = append(d.declKeywords, keywords...)
	}
}

// WithDeniedKeywords adds keywords to the call denylist.
func WithDeniedKeywords(keywords ...string) DialectOption {
	return func(d *Dialect) {
		for _, k := range keywords {
			d.denied[strings.TrimSpace(k)] = struct{}{}
		}
	}
}

var defaultDialect = NewDialect()

// DefaultDialect returns the process-wide dialect built with no options.
func DefaultDialect() *Dialect {
	return defaultDialect
}

// NewDialect compiles a dialect.
func NewDialect(opts ...DialectOption) *Dialect {
	d := &Dialect{
		commentDelim: "!",
		declKeywords: append([]string(nil), DefaultDeclarationKeywords...),
		denied:       make(map[string]struct{}, len(DefaultDeniedKeywords)),
	}
	for _, k := range DefaultDeniedKeywords {
		d.denied[k] = struct{}{}
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.ignoreCase {
		folded := make(map[string]struct{}, len(d.denied))
		for k := range d.denied {
			folded[strings.ToLower(k)] = struct{}{}
		}
		d.denied = folded
	}
	d.declKeywords = dedupe(d.declKeywords)
	d.compile()
	return d
}

func (d *Dialect) compile() {
	flags := ""
	if d.ignoreCase {
		flags = "(?i)"
	}

	// Columns 1-5 hold an optional numeric label, column 6 must be blank.
	stmt := `^[ 0-9]{5} [ \t]*`

	d.header = regexp.MustCompile(flags + `^      [ \t]*(double precision function|subroutine)[ \t]*(` +
		identPattern + `)[ \t]*\(([a-zA-Z0-9 \t,_]*)\)`)

	kws := make([]string, len(d.declKeywords))
	for i, k := range d.declKeywords {
		kws[i] = strings.ReplaceAll(regexp.QuoteMeta(strings.TrimSpace(k)), ` `, `[ \t]+`)
	}
	// Longest first so "double precision" wins over any shorter prefix.
	sort.SliceStable(kws, func(i, j int) bool { return len(kws[i]) > len(kws[j]) })
	d.declaration = regexp.MustCompile(flags + stmt + `(?:` + strings.Join(kws, "|") + `)[ \t]+(.*)$`)

	d.assignment = regexp.MustCompile(flags + stmt + `(` + identPattern + `)[ \t]*(?:\([^=]*\))?[ \t]*=(?:[^=]|$)`)
	d.callStmt = regexp.MustCompile(flags + stmt + `call[ \t]+(` + identPattern + `)[ \t]*\(`)
	d.logicalIf = regexp.MustCompile(flags + stmt + `if[ \t]*\(`)
	d.thenKeyword = regexp.MustCompile(flags + `^then\b`)
	d.expression = regexp.MustCompile(flags + stmt + identPattern + `.*=`)
	d.continuation = regexp.MustCompile(`^     [^ 0\t][ \t]*[-+*/(]*[ \t]*` + identPattern)
	d.candidate = regexp.MustCompile(`\b(` + identPattern + `)[ \t]*\(`)
	d.paramToken = regexp.MustCompile(`[a-zA-Z0-9_]+`)
	d.ident = regexp.MustCompile(`^` + identPattern + `$`)
}

// IgnoreCase reports whether identifiers are case-folded.
func (d *Dialect) IgnoreCase() bool {
	return d.ignoreCase
}

// Denied reports whether name is on the keyword denylist.
func (d *Dialect) Denied(name string) bool {
	_, ok := d.denied[d.normalize(name)]
	return ok
}

// Fingerprint hashes the effective settings. Results computed under
// dialects with equal fingerprints are interchangeable.
func (d *Dialect) Fingerprint() uint64 {
	denied := make([]string, 0, len(d.denied))
	for k := range d.denied {
		denied = append(denied, k)
	}
	sort.Strings(denied)

	var b strings.Builder
	b.WriteString(strconv.FormatBool(d.ignoreCase))
	b.WriteByte(0)
	b.WriteString(d.commentDelim)
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(d.maxColumn))
	b.WriteByte(0)
	b.WriteString(strings.Join(d.declKeywords, ","))
	b.WriteByte(0)
	b.WriteString(strings.Join(denied, ","))
	return xxhash.Sum64String(b.String())
}

func (d *Dialect) normalize(name string) string {
	name = strings.TrimSpace(name)
	if d.ignoreCase {
		return strings.ToLower(name)
	}
	return name
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
