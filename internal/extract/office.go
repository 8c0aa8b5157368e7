package extract

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// ExtractPlainText lossily decodes a plain-text payload.
func ExtractPlainText(data []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
}

// ExtractCSV renders each record as a numbered pipe-separated line.
func ExtractCSV(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var out []string
	for row := 1; ; row++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse csv row %d: %w", row, err)
		}
		out = append(out, fmt.Sprintf("Row %d: %s", row, strings.Join(record, " | ")))
	}
	return strings.Join(out, "\n"), nil
}

// ExtractXLSX walks every sheet, emitting a sheet header and one
// pipe-separated line per non-empty row.
func ExtractXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var out []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		out = append(out, "Sheet: "+sheet)
		for _, row := range rows {
			if rowEmpty(row) {
				continue
			}
			out = append(out, strings.Join(row, " | "))
		}
	}
	return strings.Join(out, "\n"), nil
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ExtractDOCX concatenates paragraph text in document order. The library
// hands back the raw document XML, so paragraphs are recovered from the
// w:p/w:t structure.
func ExtractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()

	return wordMLText(doc.Editable().GetContent())
}

// wordMLText pulls the text runs out of WordprocessingML, one line per
// paragraph.
func wordMLText(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var (
		out       []string
		paragraph strings.Builder
		inText    bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(paragraph.String()); s != "" {
					out = append(out, s)
				}
				paragraph.Reset()
			case "tab":
				paragraph.WriteByte('\t')
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		}
	}
	if s := strings.TrimSpace(paragraph.String()); s != "" {
		out = append(out, s)
	}
	return strings.Join(out, "\n"), nil
}

var slidePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// ExtractPPTX concatenates the text of every shape on every slide, slides in
// deck order.
func ExtractPPTX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open presentation: %w", err)
	}

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		m := slidePattern.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slide{num: num, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var out []string
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return "", fmt.Errorf("open slide %d: %w", s.num, err)
		}
		text, err := drawingMLText(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("parse slide %d: %w", s.num, err)
		}
		if text != "" {
			out = append(out, text)
		}
	}
	return strings.Join(out, "\n\n"), nil
}

// drawingMLText pulls a:t runs out of a slide, one line per a:p paragraph.
func drawingMLText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		out       []string
		paragraph strings.Builder
		inText    bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(paragraph.String()); s != "" {
					out = append(out, s)
				}
				paragraph.Reset()
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		}
	}
	if s := strings.TrimSpace(paragraph.String()); s != "" {
		out = append(out, s)
	}
	return strings.Join(out, "\n"), nil
}
