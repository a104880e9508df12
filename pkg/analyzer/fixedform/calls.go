package fixedform

// extractCalls finds call sites in a block. Explicit call statements are
// always accepted. An implicit f(...) candidate becomes a call only when f
// is neither a known variable of the block (array indexing) nor a denied
// keyword. This is a closed-world heuristic: statement functions and
// undeclared arrays are misreported as calls.
func extractCalls(d *Dialect, b *Block, body []Line, vars *nameSet) []CallSite {
	var calls []CallSite
	for offset, l := range body {
		site := CallSite{
			Line:       offset,
			SourceLine: b.Range.Start + offset + 1,
		}
		if l.Kind == LineCall {
			site.Callee = l.Callee
			site.Explicit = true
			calls = append(calls, site)
			continue
		}
		for _, name := range d.CallCandidates(l) {
			if vars.has(name) || d.Denied(name) {
				continue
			}
			site.Callee = name
			calls = append(calls, site)
		}
	}
	if calls == nil {
		calls = []CallSite{}
	}
	return calls
}
