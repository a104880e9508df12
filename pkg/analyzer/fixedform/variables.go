package fixedform

// nameSet is an insertion-ordered set of identifiers.
type nameSet struct {
	order []string
	index map[string]struct{}
}

func newNameSet() *nameSet {
	return &nameSet{index: make(map[string]struct{})}
}

// add inserts name unless already present. First occurrence wins.
func (s *nameSet) add(name string) {
	if name == "" {
		return
	}
	if _, ok := s.index[name]; ok {
		return
	}
	s.index[name] = struct{}{}
	s.order = append(s.order, name)
}

func (s *nameSet) has(name string) bool {
	_, ok := s.index[name]
	return ok
}

func (s *nameSet) items() []string {
	if len(s.order) == 0 {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// extractVariables collects the header parameters, then every declared or
// assigned identifier in the block body, in order of first appearance.
// Assignments guarded by a logical IF count.
func extractVariables(b *Block, body []Line) *nameSet {
	vars := newNameSet()
	for _, p := range b.Params() {
		vars.add(p)
	}
	for _, l := range body {
		switch l.Kind {
		case LineDeclaration:
			for _, name := range l.Declared {
				vars.add(name)
			}
		case LineAssignment, LineExpression:
			vars.add(l.Target)
		}
	}
	return vars
}
