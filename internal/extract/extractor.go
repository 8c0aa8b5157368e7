package extract

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/extract/ocr"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/extract/render"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/metrics"
)

// renderDPI is the rasterization density for the render-and-OCR tier.
const renderDPI = 200

// Result is what extraction produced for one document.
type Result struct {
	Text        string
	Title       string
	PageCount   int
	IsBinary    bool
	ContentType domain.ContentType
}

// OCRClient runs a document through managed OCR.
type OCRClient interface {
	ExtractText(ctx context.Context, filename string, data []byte) (string, int, error)
}

// TempStager stages intermediate artifacts (rendered page images) in the
// object store for the duration of one extraction.
type TempStager interface {
	StoreTemp(ctx context.Context, fileID, filename string, body []byte, contentType string) (string, error)
	CleanupTemp(ctx context.Context, fileID string) error
}

// Extractor converts raw artifact bytes to text. OCR, renderer, and temp
// staging are optional; absent dependencies skip their tiers.
type Extractor struct {
	ocr      OCRClient
	renderer render.Renderer
	temp     TempStager
	log      logger.Interface
	metrics  *metrics.Metrics
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithOCR enables the managed OCR tiers.
func WithOCR(client OCRClient) Option {
	return func(e *Extractor) { e.ocr = client }
}

// WithRenderer enables the render-and-OCR tier.
func WithRenderer(r render.Renderer) Option {
	return func(e *Extractor) { e.renderer = r }
}

// WithTempStager stages rendered page images in the object store.
func WithTempStager(t TempStager) Option {
	return func(e *Extractor) { e.temp = t }
}

// WithMetrics records per-tier extraction outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

// New creates an extractor.
func New(log logger.Interface, opts ...Option) *Extractor {
	e := &Extractor{log: log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract turns raw bytes into text. It never returns an empty Result for a
// recognized type: documents that defeat every tier come back as a
// placeholder with IsBinary set so the raw bytes are preserved downstream.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (Result, error) {
	ct := DetectContentType(filename, data)

	switch ct {
	case domain.ContentTypeHTML:
		return e.run(ct, "html", filename, func() (Result, error) {
			text, title, err := ExtractHTML(data)
			if err != nil {
				return Result{}, err
			}
			return Result{Text: text, Title: title, PageCount: 1, ContentType: ct}, nil
		})

	case domain.ContentTypeText:
		return Result{Text: ExtractPlainText(data), PageCount: 1, ContentType: ct}, nil

	case domain.ContentTypeCSV:
		return e.run(ct, "csv", filename, func() (Result, error) {
			text, err := ExtractCSV(data)
			if err != nil {
				// Malformed CSVs still often read fine as text.
				return Result{Text: ExtractPlainText(data), PageCount: 1, ContentType: ct}, nil
			}
			return Result{Text: text, PageCount: 1, ContentType: ct}, nil
		})

	case domain.ContentTypeXLSX:
		return e.run(ct, "xlsx", filename, func() (Result, error) {
			text, err := ExtractXLSX(data)
			if err != nil {
				return Result{}, err
			}
			return Result{Text: text, PageCount: 1, ContentType: ct}, nil
		})

	case domain.ContentTypeDOCX:
		return e.run(ct, "docx", filename, func() (Result, error) {
			text, err := ExtractDOCX(data)
			if err != nil {
				return Result{}, err
			}
			return Result{Text: text, PageCount: 1, ContentType: ct}, nil
		})

	case domain.ContentTypePPTX:
		return e.run(ct, "pptx", filename, func() (Result, error) {
			text, err := ExtractPPTX(data)
			if err != nil {
				return Result{}, err
			}
			return Result{Text: text, PageCount: 1, ContentType: ct}, nil
		})

	case domain.ContentTypePDF:
		return e.extractPDF(ctx, filename, data)

	case domain.ContentTypeImage:
		if e.ocr != nil {
			if text, pages, err := e.ocrTier(ctx, "ocr_image", filename, data); err == nil && meaningful(text) {
				return Result{Text: text, PageCount: pages, ContentType: ct}, nil
			}
		}
		return Result{
			Text:        fmt.Sprintf("Image file: %s", path.Base(filename)),
			PageCount:   1,
			IsBinary:    true,
			ContentType: ct,
		}, nil

	default:
		return Result{
			Text:        fmt.Sprintf("File: %s (%s) - Binary content available", path.Base(filename), ct),
			PageCount:   1,
			IsBinary:    true,
			ContentType: ct,
		}, nil
	}
}

// run executes one native tier with instrumentation. A tier failure falls
// back to the binary placeholder rather than erroring the document.
func (e *Extractor) run(ct domain.ContentType, tier, filename string, fn func() (Result, error)) (Result, error) {
	start := time.Now()
	res, err := fn()
	if e.metrics != nil {
		e.metrics.RecordExtraction(tier, string(ct), err, time.Since(start))
	}
	if err != nil {
		e.log.Warn("native extraction failed", "tier", tier, "filename", filename, "error", err)
		return Result{
			Text:        fmt.Sprintf("File: %s (%s) - Binary content available", path.Base(filename), ct),
			PageCount:   1,
			IsBinary:    true,
			ContentType: ct,
		}, nil
	}
	return res, nil
}

// extractPDF walks the tiered chain, stopping at the first tier that yields
// meaningful text.
func (e *Extractor) extractPDF(ctx context.Context, filename string, data []byte) (Result, error) {
	if err := CheckPDFIntegrity(data); err != nil {
		e.log.Warn("pdf integrity check failed", "filename", filename, "error", err)
		return Result{
			Text:        fmt.Sprintf("PDF file: %s - file appears corrupted or truncated and could not be read", path.Base(filename)),
			PageCount:   0,
			IsBinary:    true,
			ContentType: domain.ContentTypePDF,
		}, nil
	}

	// Tier 1: text layer.
	text, pages, err := e.pdfTier(ctx, "pdf_text", func() (string, int, error) {
		return extractPDFText(ctx, data)
	})
	if err == nil && meaningful(text) {
		return Result{Text: text, PageCount: pages, ContentType: domain.ContentTypePDF}, nil
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	// Tier 2: row-layout walk.
	text, rowPages, err := e.pdfTier(ctx, "pdf_rows", func() (string, int, error) {
		return extractPDFRows(ctx, data)
	})
	if rowPages > pages {
		pages = rowPages
	}
	if err == nil && meaningful(text) {
		return Result{Text: text, PageCount: pages, ContentType: domain.ContentTypePDF}, nil
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	// Tier 3: managed OCR over the whole document.
	if e.ocr != nil && len(data) <= ocr.MaxDocumentBytes {
		text, ocrPages, err := e.ocrTier(ctx, "ocr_document", filename, data)
		if ocrPages > pages {
			pages = ocrPages
		}
		if err == nil && meaningful(text) {
			return Result{Text: text, PageCount: pages, ContentType: domain.ContentTypePDF}, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
	}

	// Tier 4: rasterize and OCR page images.
	if e.ocr != nil && e.renderer != nil {
		text, renderPages, err := e.renderAndOCR(ctx, filename, data)
		if renderPages > pages {
			pages = renderPages
		}
		if err == nil && meaningful(text) {
			return Result{Text: text, PageCount: pages, ContentType: domain.ContentTypePDF}, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
	}

	// Tier 5: synthesize images from whatever partial text exists and OCR
	// those. Only reachable when no renderer is wired in.
	if e.ocr != nil && e.renderer == nil && meaningfulSeed(text) {
		if synthText, synthPages, err := e.synthesizeAndOCR(ctx, filename, text); err == nil && meaningful(synthText) {
			if synthPages > pages {
				pages = synthPages
			}
			return Result{Text: synthText, PageCount: pages, ContentType: domain.ContentTypePDF}, nil
		}
	}

	e.log.Warn("pdf extraction exhausted all tiers", "filename", filename, "pages", pages)
	return Result{
		Text:        fmt.Sprintf("PDF file: %s - no extractable text; the document is likely image-based, encrypted, or corrupted", path.Base(filename)),
		PageCount:   pages,
		IsBinary:    true,
		ContentType: domain.ContentTypePDF,
	}, nil
}

func (e *Extractor) pdfTier(_ context.Context, tier string, fn func() (string, int, error)) (string, int, error) {
	start := time.Now()
	text, pages, err := fn()
	if e.metrics != nil {
		e.metrics.RecordExtraction(tier, string(domain.ContentTypePDF), err, time.Since(start))
	}
	if err != nil {
		e.log.Debug("pdf tier failed", "tier", tier, "error", err)
	}
	return text, pages, err
}

func (e *Extractor) ocrTier(ctx context.Context, tier, filename string, data []byte) (string, int, error) {
	start := time.Now()
	text, pages, err := e.ocr.ExtractText(ctx, filename, data)
	if e.metrics != nil {
		e.metrics.RecordExtraction(tier, string(domain.ContentTypePDF), err, time.Since(start))
		if err == nil {
			e.metrics.OCRPages.Add(float64(pages))
		}
	}
	if err != nil {
		e.log.Debug("ocr tier failed", "tier", tier, "error", err)
	}
	return text, pages, err
}

// renderAndOCR rasterizes each page, stages the images, OCRs them one by
// one, and cleans the staging area up afterwards. A single failed page
// becomes a placeholder instead of sinking the document.
func (e *Extractor) renderAndOCR(ctx context.Context, filename string, data []byte) (string, int, error) {
	images, err := e.renderer.RenderPages(data, renderDPI)
	if err != nil {
		return "", 0, fmt.Errorf("render pages: %w", err)
	}
	if len(images) == 0 {
		return "", 0, errors.New("renderer produced no pages")
	}

	stageID := uuid.NewString()
	if e.temp != nil {
		defer func() {
			if err := e.temp.CleanupTemp(context.WithoutCancel(ctx), stageID); err != nil {
				e.log.Warn("temp image cleanup failed", "stage_id", stageID, "error", err)
			}
		}()
	}

	var parts []string
	succeeded := 0
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return "", len(images), err
		}

		pageName := fmt.Sprintf("page_%d.png", i+1)
		if e.temp != nil {
			if _, err := e.temp.StoreTemp(ctx, stageID, pageName, img, "image/png"); err != nil {
				e.log.Warn("temp image staging failed", "page", i+1, "error", err)
			}
		}

		pageText, _, err := e.ocr.ExtractText(ctx, pageName, img)
		if err != nil {
			e.log.Warn("page ocr failed", "filename", filename, "page", i+1, "error", err)
			pageText = "[Processing failed]"
		} else {
			succeeded++
		}
		parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", i+1, strings.TrimSpace(pageText)))
	}
	if succeeded == 0 {
		return "", len(images), errors.New("ocr failed on every rendered page")
	}
	return strings.Join(parts, "\n\n"), len(images), nil
}

// synthesizeAndOCR draws previously recovered text onto images and OCRs
// them. The text is split on existing page markers when present.
func (e *Extractor) synthesizeAndOCR(ctx context.Context, filename, seedText string) (string, int, error) {
	pages := splitPageMarked(seedText)
	images, err := render.TextImages(pages)
	if err != nil {
		return "", 0, fmt.Errorf("synthesize text images: %w", err)
	}

	var parts []string
	succeeded := 0
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return "", len(images), err
		}
		pageText, _, err := e.ocr.ExtractText(ctx, fmt.Sprintf("synth_%d.png", i+1), img)
		if err != nil {
			e.log.Warn("synthetic page ocr failed", "filename", filename, "page", i+1, "error", err)
			pageText = "[Processing failed]"
		} else {
			succeeded++
		}
		parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", i+1, strings.TrimSpace(pageText)))
	}
	if succeeded == 0 {
		return "", len(images), errors.New("ocr failed on every synthesized page")
	}
	return strings.Join(parts, "\n\n"), len(images), nil
}

// meaningfulSeed is a softer bar than meaningful: any non-whitespace at all
// gives the synthesis tier something to draw.
func meaningfulSeed(text string) bool {
	return strings.TrimSpace(text) != ""
}

var pageMarker = "--- Page "

// splitPageMarked splits text on page markers, or returns it whole when no
// markers exist.
func splitPageMarked(text string) []string {
	if !strings.Contains(text, pageMarker) {
		return []string{text}
	}
	var pages []string
	for _, chunk := range strings.Split(text, pageMarker) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		// Drop the "N ---" remnant of the marker.
		if i := strings.Index(chunk, "---"); i >= 0 && i < 8 {
			chunk = strings.TrimSpace(chunk[i+3:])
		}
		if chunk != "" {
			pages = append(pages, chunk)
		}
	}
	if len(pages) == 0 {
		return []string{text}
	}
	return pages
}
