package ocr

import (
	"fmt"
	"sort"
	"strings"
)

// lineYTolerance is how far apart two line blocks' tops may be (in
// page-relative units) while still counting as the same visual line.
const lineYTolerance = 0.02

// failedPagePlaceholder stands in for a page whose reconstruction failed.
const failedPagePlaceholder = "[Processing failed]"

// arena is the indexed form of the flat block slice: pass one of assembly.
type arena struct {
	byID  map[string]*Block
	pages []int
	// per-page block lists in encounter order
	lines  map[int][]*Block
	tables map[int][]*Block
	keys   map[int][]*Block
}

func buildArena(blocks []Block) *arena {
	a := &arena{
		byID:   make(map[string]*Block, len(blocks)),
		lines:  make(map[int][]*Block),
		tables: make(map[int][]*Block),
		keys:   make(map[int][]*Block),
	}

	seen := make(map[int]bool)
	for i := range blocks {
		b := &blocks[i]
		if b.Page <= 0 {
			b.Page = 1
		}
		if b.ID != "" {
			a.byID[b.ID] = b
		}
		if !seen[b.Page] {
			seen[b.Page] = true
			a.pages = append(a.pages, b.Page)
		}

		switch b.BlockType {
		case BlockTypeLine:
			a.lines[b.Page] = append(a.lines[b.Page], b)
		case BlockTypeTable:
			a.tables[b.Page] = append(a.tables[b.Page], b)
		case BlockTypeKeyValueSet:
			if b.hasEntity(EntityKey) {
				a.keys[b.Page] = append(a.keys[b.Page], b)
			}
		}
	}
	sort.Ints(a.pages)
	return a
}

// Assemble reconstructs document text from a flat OCR block graph. Output is
// page-ordered with "--- Page N ---" markers; each page carries its visual
// lines, then its tables, then its form key/value pairs. A page that cannot
// be reconstructed is replaced with a placeholder rather than failing the
// whole document.
func Assemble(blocks []Block) string {
	if len(blocks) == 0 {
		return ""
	}

	a := buildArena(blocks)

	var out strings.Builder
	for _, page := range a.pages {
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		fmt.Fprintf(&out, "--- Page %d ---\n", page)
		out.WriteString(assemblePage(a, page))
	}
	return out.String()
}

// PageCount returns the number of distinct pages in the graph.
func PageCount(blocks []Block) int {
	pages := make(map[int]bool)
	for i := range blocks {
		p := blocks[i].Page
		if p <= 0 {
			p = 1
		}
		pages[p] = true
	}
	return len(pages)
}

func assemblePage(a *arena, page int) (text string) {
	// A malformed subgraph (dangling ids, absurd indexes) must cost one
	// page, not the document.
	defer func() {
		if r := recover(); r != nil {
			text = failedPagePlaceholder
		}
	}()

	var sections []string

	if lines := assembleLines(a.lines[page]); lines != "" {
		sections = append(sections, lines)
	}
	for i, table := range a.tables[page] {
		if rows := assembleTable(a, table); rows != "" {
			sections = append(sections, fmt.Sprintf("TABLE %d:\n%s", i+1, rows))
		}
	}
	if form := assembleForm(a, a.keys[page]); form != "" {
		sections = append(sections, "FORM DATA:\n"+form)
	}

	return strings.Join(sections, "\n\n")
}

// assembleLines orders line blocks top-to-bottom, grouping blocks whose
// vertical positions fall within tolerance into one visual line read
// left-to-right. Blocks without geometry keep their encounter order.
func assembleLines(lines []*Block) string {
	if len(lines) == 0 {
		return ""
	}

	sorted := make([]*Block, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return blockTop(sorted[i]) < blockTop(sorted[j])
	})

	var visual [][]*Block
	for _, b := range sorted {
		n := len(visual)
		if n > 0 && blockTop(b)-blockTop(visual[n-1][0]) <= lineYTolerance {
			visual[n-1] = append(visual[n-1], b)
			continue
		}
		visual = append(visual, []*Block{b})
	}

	var out []string
	for _, group := range visual {
		sort.SliceStable(group, func(i, j int) bool {
			return blockLeft(group[i]) < blockLeft(group[j])
		})
		var parts []string
		for _, b := range group {
			if b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		if len(parts) > 0 {
			out = append(out, strings.Join(parts, " "))
		}
	}
	return strings.Join(out, "\n")
}

// Cells beyond these bounds are treated as graph corruption and dropped.
const (
	maxTableRows = 10000
	maxTableCols = 1000
)

// assembleTable renders a table block's cells as pipe-separated rows.
func assembleTable(a *arena, table *Block) string {
	rows := make(map[int]map[int]string)
	maxRow := 0

	for _, id := range table.childIDs() {
		cell, ok := a.byID[id]
		if !ok || cell.BlockType != BlockTypeCell {
			continue
		}
		row, col := cell.RowIndex, cell.ColumnIndex
		if row <= 0 || col <= 0 || row > maxTableRows || col > maxTableCols {
			continue
		}
		if rows[row] == nil {
			rows[row] = make(map[int]string)
		}
		rows[row][col] = childText(a, cell)
		if row > maxRow {
			maxRow = row
		}
	}

	var out []string
	for row := 1; row <= maxRow; row++ {
		cols := rows[row]
		if len(cols) == 0 {
			continue
		}
		maxCol := 0
		for col := range cols {
			if col > maxCol {
				maxCol = col
			}
		}
		cells := make([]string, maxCol)
		for col := 1; col <= maxCol; col++ {
			cells[col-1] = cols[col]
		}
		out = append(out, strings.Join(cells, " | "))
	}
	return strings.Join(out, "\n")
}

// assembleForm renders key/value pairs, one "key: value" line per pair.
func assembleForm(a *arena, keys []*Block) string {
	var out []string
	for _, key := range keys {
		keyText := childText(a, key)
		if keyText == "" {
			continue
		}

		var valueText string
		for _, id := range key.relatedIDs(RelationshipValue) {
			value, ok := a.byID[id]
			if !ok {
				continue
			}
			if t := childText(a, value); t != "" {
				if valueText != "" {
					valueText += " "
				}
				valueText += t
			}
		}
		out = append(out, keyText+": "+valueText)
	}
	return strings.Join(out, "\n")
}

// childText concatenates a block's child words and selection marks.
func childText(a *arena, b *Block) string {
	var parts []string
	for _, id := range b.childIDs() {
		child, ok := a.byID[id]
		if !ok {
			continue
		}
		switch child.BlockType {
		case BlockTypeWord:
			if child.Text != "" {
				parts = append(parts, child.Text)
			}
		case BlockTypeSelectionElement:
			if child.SelectionStatus == SelectionSelected {
				parts = append(parts, "[X]")
			} else {
				parts = append(parts, "[ ]")
			}
		}
	}
	return strings.Join(parts, " ")
}

func blockTop(b *Block) float64 {
	if b.Box == nil {
		return 0
	}
	return b.Box.Top
}

func blockLeft(b *Block) float64 {
	if b.Box == nil {
		return 0
	}
	return b.Box.Left
}
