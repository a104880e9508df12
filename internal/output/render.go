package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Left-aligned, borderless tables.
var (
	textTableConfig = tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.On},
		},
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignLeft}},
		Footer: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignLeft}},
	}
	textTableRendition = tw.Rendition{
		Borders:  tw.Border{Left: tw.Off, Right: tw.Off, Top: tw.Off, Bottom: tw.Off},
		Settings: tw.Settings{Separators: tw.Separators{BetweenColumns: tw.Off}},
	}
)

// writeTitle prints title underlined with rule. Bold is used when colored
// and no other attributes are given.
func writeTitle(w io.Writer, title, rule string, colored bool, attrs ...color.Attribute) {
	if title == "" {
		return
	}
	if colored {
		if len(attrs) == 0 {
			attrs = []color.Attribute{color.Bold}
		}
		color.New(attrs...).Fprintln(w, title)
	} else {
		fmt.Fprintln(w, title)
	}
	fmt.Fprintln(w, strings.Repeat(rule, len(title)))
}

// Table is a titled grid of strings. Data, when set, replaces the grid in
// the structured formats.
type Table struct {
	Title   string     `json:"-" toon:"-"`
	Headers []string   `json:"-" toon:"-"`
	Rows    [][]string `json:"-" toon:"-"`
	Footer  []string   `json:"-" toon:"-"`
	Data    any        `json:"data,omitempty" toon:"data,omitempty"`
}

// NewTable creates a table that wraps structured data for serialization.
func NewTable(title string, headers []string, rows [][]string, footer []string, data any) *Table {
	return &Table{Title: title, Headers: headers, Rows: rows, Footer: footer, Data: data}
}

// RenderData returns Data, or one header-keyed map per row.
func (t *Table) RenderData() any {
	if t.Data != nil {
		return t.Data
	}
	rows := make([]map[string]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = make(map[string]string, len(row))
		for j := 0; j < len(row) && j < len(t.Headers); j++ {
			rows[i][t.Headers[j]] = row[j]
		}
	}
	return rows
}

func (t *Table) RenderText(w io.Writer, colored bool) error {
	if t.Title != "" {
		writeTitle(w, t.Title, "=", colored)
		fmt.Fprintln(w)
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(textTableConfig),
		tablewriter.WithRendition(textTableRendition),
	)
	table.Header(t.Headers)
	for _, row := range t.Rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if len(t.Footer) > 0 {
		cells := make([]any, len(t.Footer))
		for i, cell := range t.Footer {
			cells[i] = cell
		}
		table.Footer(cells...)
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func (t *Table) RenderMarkdown(w io.Writer) error {
	if t.Title != "" {
		fmt.Fprintf(w, "## %s\n\n", t.Title)
	}

	rule := make([]string, len(t.Headers))
	for i := range rule {
		rule[i] = "---"
	}
	writeMarkdownRow(w, t.Headers)
	writeMarkdownRow(w, rule)
	for _, row := range t.Rows {
		writeMarkdownRow(w, row)
	}
	if len(t.Footer) > 0 {
		writeMarkdownRow(w, t.Footer)
	}

	_, err := fmt.Fprintln(w)
	return err
}

func writeMarkdownRow(w io.Writer, cells []string) {
	escaped := make([]string, len(cells))
	for i, cell := range cells {
		escaped[i] = strings.ReplaceAll(cell, "|", `\|`)
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(escaped, " | "))
}

// Section is a titled block of text with nested subsections.
type Section struct {
	Title    string    `json:"title,omitempty" toon:"title,omitempty"`
	Content  string    `json:"content,omitempty" toon:"content,omitempty"`
	Sections []Section `json:"sections,omitempty" toon:"sections,omitempty"`
	Data     any       `json:"data,omitempty" toon:"data,omitempty"`
}

func (s *Section) RenderData() any {
	if s.Data != nil {
		return s.Data
	}
	return s
}

// RenderText underlines the top level with "=" and nested levels with "-".
func (s *Section) RenderText(w io.Writer, colored bool) error {
	s.writeText(w, colored, "=")
	return nil
}

func (s *Section) writeText(w io.Writer, colored bool, rule string) {
	writeTitle(w, s.Title, rule, colored)
	if s.Content != "" {
		fmt.Fprintln(w, s.Content)
	}
	for i := range s.Sections {
		fmt.Fprintln(w)
		s.Sections[i].writeText(w, colored, "-")
	}
}

// RenderMarkdown starts at a level-2 heading.
func (s *Section) RenderMarkdown(w io.Writer) error {
	s.writeMarkdown(w, 2)
	return nil
}

func (s *Section) writeMarkdown(w io.Writer, level int) {
	if s.Title != "" {
		fmt.Fprintf(w, "%s %s\n\n", strings.Repeat("#", level), s.Title)
	}
	if s.Content != "" {
		fmt.Fprintf(w, "%s\n\n", s.Content)
	}
	for i := range s.Sections {
		s.Sections[i].writeMarkdown(w, level+1)
	}
}

// Report is an ordered list of renderables under an optional title.
type Report struct {
	Title    string       `json:"title,omitempty" toon:"title,omitempty"`
	Sections []Renderable `json:"-" toon:"-"`
	Data     any          `json:"data,omitempty" toon:"data,omitempty"`
}

// RenderData returns Data, or the title and the data of every section.
func (r *Report) RenderData() any {
	if r.Data != nil {
		return r.Data
	}
	parts := make([]any, len(r.Sections))
	for i, s := range r.Sections {
		parts[i] = s.RenderData()
	}
	return map[string]any{"title": r.Title, "sections": parts}
}

func (r *Report) RenderText(w io.Writer, colored bool) error {
	if r.Title != "" {
		writeTitle(w, r.Title, "=", colored, color.Bold, color.FgCyan)
		fmt.Fprintln(w)
	}
	for i, s := range r.Sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := s.RenderText(w, colored); err != nil {
			return err
		}
	}
	return nil
}

func (r *Report) RenderMarkdown(w io.Writer) error {
	if r.Title != "" {
		fmt.Fprintf(w, "# %s\n\n", r.Title)
	}
	for _, s := range r.Sections {
		if err := s.RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}
