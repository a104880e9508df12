package fixedform

// AnalyzeMutations records, for every subroutine, the declared parameters
// that appear on the left-hand side of an assignment in its body, including
// one guarded by a logical IF. These are by-reference outputs visible to the
// caller. Order is first occurrence.
func AnalyzeMutations(blocks []Block, classified []Line) {
	for i := range blocks {
		b := &blocks[i]
		if b.Kind != KindSubroutine || b.Signature == nil {
			continue
		}

		params := make(map[string]struct{}, len(b.Signature.Params))
		for _, p := range b.Signature.Params {
			params[p] = struct{}{}
		}

		altered := newNameSet()
		for _, l := range classified[b.Range.Start:b.Range.End] {
			if l.Target == "" {
				continue
			}
			if _, ok := params[l.Target]; ok {
				altered.add(l.Target)
			}
		}
		b.Signature.Altered = altered.items()
	}
}
