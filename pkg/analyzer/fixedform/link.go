package fixedform

// Link binds every call site to the first block, in file order, whose name
// equals the callee. Calls to routines not defined in the file stay
// unresolved. Main has no name and is never a target. Cycles are allowed;
// targets are arena indices, not pointers. Running Link twice is harmless.
func Link(blocks []Block) {
	byName := make(map[string]BlockID, len(blocks))
	for i := range blocks {
		b := &blocks[i]
		if b.Kind == KindMain {
			continue
		}
		if _, dup := byName[b.Name]; !dup {
			byName[b.Name] = b.ID
		}
	}

	for i := range blocks {
		calls := blocks[i].Calls
		for j := range calls {
			calls[j].Target = nil
			if id, ok := byName[calls[j].Callee]; ok {
				target := id
				calls[j].Target = &target
			}
		}
	}
}
