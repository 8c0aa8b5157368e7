// Package render rasterizes PDF pages to PNG for image-based OCR, and
// synthesizes text images when no rasterizer is available.
package render

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// Renderer turns a PDF into one PNG per page.
type Renderer interface {
	RenderPages(data []byte, dpi float64) ([][]byte, error)
}

// Fitz renders through MuPDF.
type Fitz struct{}

// NewFitz creates the MuPDF-backed renderer.
func NewFitz() *Fitz {
	return &Fitz{}
}

// RenderPages rasterizes every page at the given DPI and returns PNG bytes
// in page order.
func (f *Fitz) RenderPages(data []byte, dpi float64) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open document for rendering: %w", err)
	}
	defer doc.Close()

	pages := make([][]byte, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		img, err := doc.ImageDPI(n, dpi)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", n+1, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", n+1, err)
		}
		pages = append(pages, buf.Bytes())
	}
	return pages, nil
}
