package render_test

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/extract/render"
)

func TestTextImagesProducesDecodablePNGs(t *testing.T) {
	t.Parallel()

	pages := []string{
		"Annual Report 2024\nRevenue grew 12% year over year.",
		"Second page content.",
	}

	images, err := render.TextImages(pages)
	if err != nil {
		t.Fatalf("TextImages: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("got %d images, want 2", len(images))
	}

	for i, data := range images {
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("page %d not a PNG: %v", i+1, err)
		}
		bounds := img.Bounds()
		if bounds.Dx() < 100 || bounds.Dy() < 100 {
			t.Errorf("page %d implausibly small: %v", i+1, bounds)
		}
	}
}

func TestTextImagesHandlesLongLines(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("shareholder equity statement ", 50)
	images, err := render.TextImages([]string{long})
	if err != nil {
		t.Fatalf("TextImages: %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("got %d images, want 1", len(images))
	}
	if _, err := png.Decode(bytes.NewReader(images[0])); err != nil {
		t.Errorf("long-line page not a PNG: %v", err)
	}
}

func TestTextImagesEmptyInput(t *testing.T) {
	t.Parallel()

	images, err := render.TextImages(nil)
	if err != nil {
		t.Fatalf("TextImages(nil): %v", err)
	}
	if len(images) != 0 {
		t.Errorf("got %d images for no pages", len(images))
	}
}
