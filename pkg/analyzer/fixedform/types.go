package fixedform

import (
	"encoding/json"
	"fmt"
)

// Kind identifies what a Block represents.
type Kind int

const (
	KindMain Kind = iota
	KindSubroutine
	KindFunction
)

// String implements fmt.Stringer for toon serialization.
func (k Kind) String() string {
	switch k {
	case KindMain:
		return "main"
	case KindSubroutine:
		return "subroutine"
	case KindFunction:
		return "function"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "main":
		*k = KindMain
	case "subroutine":
		*k = KindSubroutine
	case "function":
		*k = KindFunction
	default:
		return fmt.Errorf("unknown block kind %q", text)
	}
	return nil
}

// BlockID is the index of a block in Program.Blocks.
type BlockID int

// LineRange is a half-open [Start, End) range of line offsets.
type LineRange struct {
	Start int `json:"start" toon:"start"`
	End   int `json:"end" toon:"end"`
}

// Len returns the number of lines in the range.
func (r LineRange) Len() int {
	return r.End - r.Start
}

// Contains reports whether offset i falls inside the range.
func (r LineRange) Contains(i int) bool {
	return i >= r.Start && i < r.End
}

// Signature is the payload carried by subroutine and function blocks.
// Altered is only populated for subroutines.
type Signature struct {
	Params  []string `json:"params" toon:"params"`
	Altered []string `json:"altered,omitempty" toon:"altered,omitempty"`
}

// CallSite is a reference to another routine found in a block.
type CallSite struct {
	Callee     string   `json:"callee" toon:"callee"`
	Line       int      `json:"line" toon:"line"`               // offset within the owning block
	SourceLine int      `json:"source_line" toon:"source_line"` // 1-based line in the file
	Explicit   bool     `json:"explicit" toon:"explicit"`       // call statement rather than f(...) in an expression
	Target     *BlockID `json:"target,omitempty" toon:"target,omitempty"`
}

// Resolved reports whether linking bound the call to a block in the same file.
func (c CallSite) Resolved() bool {
	return c.Target != nil
}

// Block is a contiguous run of lines forming the main program or one routine.
type Block struct {
	ID        BlockID    `json:"id" toon:"id"`
	Kind      Kind       `json:"kind" toon:"kind"`
	Range     LineRange  `json:"range" toon:"range"`
	Name      string     `json:"name,omitempty" toon:"name,omitempty"`
	Signature *Signature `json:"signature,omitempty" toon:"signature,omitempty"`
	Variables []string   `json:"variables" toon:"variables"`
	Calls     []CallSite `json:"calls" toon:"calls"`
}

// Params returns the declared parameters, or nil for Main.
func (b *Block) Params() []string {
	if b.Signature == nil {
		return nil
	}
	return b.Signature.Params
}

// Altered returns the parameters reassigned in a subroutine body.
func (b *Block) Altered() []string {
	if b.Kind != KindSubroutine || b.Signature == nil {
		return nil
	}
	return b.Signature.Altered
}

// HasVariable reports whether name was declared or assigned in the block.
func (b *Block) HasVariable(name string) bool {
	for _, v := range b.Variables {
		if v == name {
			return true
		}
	}
	return false
}

// Label is the display name of the block.
func (b *Block) Label() string {
	if b.Kind == KindMain {
		return "MAIN"
	}
	return b.Name
}

// Program is the analysis result for one source file.
// Blocks is an arena: CallSite.Target indexes into it.
type Program struct {
	Path   string   `json:"path" toon:"path"`
	Lines  []string `json:"-" toon:"-"`
	Blocks []Block  `json:"blocks" toon:"blocks"`
}

// Main returns the main block, which is always first.
func (p *Program) Main() *Block {
	if len(p.Blocks) == 0 {
		return nil
	}
	return &p.Blocks[0]
}

// Block returns the block with the given id, or nil if out of range.
func (p *Program) Block(id BlockID) *Block {
	if id < 0 || int(id) >= len(p.Blocks) {
		return nil
	}
	return &p.Blocks[id]
}

// Lookup returns the first block in file order named name.
func (p *Program) Lookup(name string) *Block {
	for i := range p.Blocks {
		if p.Blocks[i].Kind != KindMain && p.Blocks[i].Name == name {
			return &p.Blocks[i]
		}
	}
	return nil
}

// Routines returns every subroutine and function block in file order.
func (p *Program) Routines() []*Block {
	routines := make([]*Block, 0, len(p.Blocks))
	for i := range p.Blocks {
		if p.Blocks[i].Kind != KindMain {
			routines = append(routines, &p.Blocks[i])
		}
	}
	return routines
}

// Resolve returns the block a call site was linked to, or nil.
func (p *Program) Resolve(cs CallSite) *Block {
	if cs.Target == nil {
		return nil
	}
	return p.Block(*cs.Target)
}

// Summary returns aggregate counts for the program.
func (p *Program) Summary() Summary {
	s := Summary{Lines: len(p.Lines)}
	for i := range p.Blocks {
		b := &p.Blocks[i]
		switch b.Kind {
		case KindMain:
		case KindSubroutine:
			s.Subroutines++
		case KindFunction:
			s.Functions++
		}
		for _, cs := range b.Calls {
			s.Calls++
			if !cs.Resolved() {
				s.Unresolved++
			}
		}
	}
	return s
}

// Summary holds aggregate counts for a Program.
type Summary struct {
	Lines       int `json:"lines" toon:"lines"`
	Subroutines int `json:"subroutines" toon:"subroutines"`
	Functions   int `json:"functions" toon:"functions"`
	Calls       int `json:"calls" toon:"calls"`
	Unresolved  int `json:"unresolved" toon:"unresolved"`
}

// MarshalJSON adds the summary alongside the blocks.
func (p *Program) MarshalJSON() ([]byte, error) {
	type plain Program
	return json.Marshal(struct {
		*plain
		Summary Summary `json:"summary"`
	}{(*plain)(p), p.Summary()})
}
