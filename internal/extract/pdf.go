package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrCorruptPDF marks payloads that fail structural integrity checks; the
// extraction chain short-circuits rather than feeding them to parsers.
var ErrCorruptPDF = errors.New("corrupt pdf")

// minMeaningfulRunes is the yield a chain tier must produce to stop the
// chain: more than this many non-whitespace characters.
const minMeaningfulRunes = 10

// CheckPDFIntegrity rejects payloads that cannot be a usable PDF: wrong
// leader, missing trailer, implausibly small, or mostly null bytes.
func CheckPDFIntegrity(data []byte) error {
	if len(data) < 1024 {
		return fmt.Errorf("%w: only %d bytes", ErrCorruptPDF, len(data))
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return fmt.Errorf("%w: missing %%PDF- header", ErrCorruptPDF)
	}
	tail := data
	if len(tail) > 1024 {
		tail = tail[len(tail)-1024:]
	}
	if !bytes.Contains(tail, []byte("%%EOF")) {
		return fmt.Errorf("%w: missing %%%%EOF trailer", ErrCorruptPDF)
	}
	nulls := 0
	for _, b := range data {
		if b == 0 {
			nulls++
		}
	}
	if nulls*2 > len(data) {
		return fmt.Errorf("%w: %d%% null bytes", ErrCorruptPDF, nulls*100/len(data))
	}
	return nil
}

// meaningful reports whether text clears the chain's yield bar.
func meaningful(text string) bool {
	count := 0
	for _, r := range text {
		if !strings.ContainsRune(" \t\n\r\v\f", r) {
			count++
			if count > minMeaningfulRunes {
				return true
			}
		}
	}
	return false
}

// extractPDFText walks the text layer page by page. Fast but defeated by
// scanned documents and exotic encodings.
func extractPDFText(ctx context.Context, data []byte) (text string, pages int, err error) {
	// The parser panics on some malformed streams; a panic here means
	// "this tier failed", not "crash the worker".
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf text layer panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	pages = reader.NumPage()
	var parts []string
	for n := 1; n <= pages; n++ {
		if err := ctx.Err(); err != nil {
			return "", pages, err
		}
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", n, pageText))
	}
	return strings.Join(parts, "\n\n"), pages, nil
}

// extractPDFRows reassembles text row by row from glyph positions. Slower
// than the text layer but survives documents whose content streams are
// ordered oddly.
func extractPDFRows(ctx context.Context, data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf row layout panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	pages = reader.NumPage()
	var parts []string
	for n := 1; n <= pages; n++ {
		if err := ctx.Err(); err != nil {
			return "", pages, err
		}
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}

		var lines []string
		for _, row := range rows {
			var words []string
			for _, word := range row.Content {
				if word.S != "" {
					words = append(words, word.S)
				}
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", n, strings.Join(lines, "\n")))
		}
	}
	return strings.Join(parts, "\n\n"), pages, nil
}
