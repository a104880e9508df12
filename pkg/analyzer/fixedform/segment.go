package fixedform

// ClassifyAll classifies every line once. Later stages work on the result
// and never re-match raw text to find block boundaries. Continuation lines
// of a declaration are declarations too; comment lines may sit between them.
func (d *Dialect) ClassifyAll(lines []string) []Line {
	classified := make([]Line, len(lines))
	inDecl := false
	for i, raw := range lines {
		l := d.Classify(raw)
		switch {
		case l.Kind == LineComment:
		case inDecl && continued(l.Code):
			l = Line{Kind: LineDeclaration, Code: l.Code, Declared: d.parseDeclList(l.Code[6:])}
		default:
			inDecl = l.Kind == LineDeclaration
		}
		classified[i] = l
	}
	return classified
}

// Segment splits classified lines into blocks at header lines. Lines before
// the first header form Main, which always exists (possibly empty). Each
// block runs to the line before the next header or to end of file, so the
// ranges partition the input.
//
// Per block, variables are extracted before calls: a call candidate is
// rejected as array indexing only if its name is already a known variable.
func Segment(d *Dialect, classified []Line) []Block {
	blocks := []Block{{ID: 0, Kind: KindMain}}

	for i, l := range classified {
		if l.Kind != LineHeader {
			continue
		}
		blocks[len(blocks)-1].Range.End = i
		blocks = append(blocks, Block{
			ID:    BlockID(len(blocks)),
			Kind:  l.Header.Kind,
			Range: LineRange{Start: i},
			Name:  l.Header.Name,
			Signature: &Signature{
				Params: append([]string{}, l.Header.Params...),
			},
		})
	}
	blocks[len(blocks)-1].Range.End = len(classified)

	for i := range blocks {
		b := &blocks[i]
		body := classified[b.Range.Start:b.Range.End]
		vars := extractVariables(b, body)
		b.Variables = vars.items()
		b.Calls = extractCalls(d, b, body, vars)
	}
	return blocks
}

// Build runs the whole pipeline over one file's lines: segmentation with
// per-block extraction, then the global linking pass, then mutation analysis.
func Build(d *Dialect, path string, lines []string) *Program {
	classified := d.ClassifyAll(lines)
	blocks := Segment(d, classified)
	Link(blocks)
	AnalyzeMutations(blocks, classified)
	return &Program{
		Path:   path,
		Lines:  lines,
		Blocks: blocks,
	}
}
