// Package extract turns raw document bytes into UTF-8 text through a tiered
// chain of native parsers with OCR fallbacks.
package extract

import (
	"archive/zip"
	"bytes"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
)

// zipContainer marks "it is a zip, interior not yet probed" while sniffing.
const zipContainer = domain.ContentType("zip")

// DetectContentType decides what a payload is. Magic bytes win over the
// filename extension because crawled URLs routinely lie about what they
// serve; the extension settles what the bytes leave ambiguous.
func DetectContentType(filename string, data []byte) domain.ContentType {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	declared := domain.ContentTypeBinary
	if ext != "" {
		declared = domain.ContentTypeFromExt(ext)
	}

	sniffed, confident := sniffContentType(data)
	if !confident {
		if ext != "" {
			return declared
		}
		if looksLikeText(data) {
			return domain.ContentTypeText
		}
		return domain.ContentTypeBinary
	}

	if sniffed == zipContainer {
		// Office formats are all zips; a matching extension is more
		// precise than probing the interior.
		switch declared {
		case domain.ContentTypeDOCX, domain.ContentTypeXLSX, domain.ContentTypePPTX:
			return declared
		}
		return sniffZipInterior(data)
	}
	return sniffed
}

// sniffContentType inspects magic bytes. The second return is false when the
// payload gives no reliable signal.
func sniffContentType(data []byte) (domain.ContentType, bool) {
	if len(data) < 4 {
		return domain.ContentTypeBinary, false
	}

	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return domain.ContentTypePDF, true
	case bytes.HasPrefix(data, []byte{0x50, 0x4B, 0x03, 0x04}),
		bytes.HasPrefix(data, []byte{0x50, 0x4B, 0x05, 0x06}):
		return zipContainer, true
	case bytes.HasPrefix(data, []byte{0xD0, 0xCF, 0x11, 0xE0}):
		// Legacy OLE2 container (doc/xls/ppt). The native parsers only
		// handle the OOXML variants, so it goes down the binary path.
		return domain.ContentTypeBinary, true
	case bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47}),
		bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}),
		bytes.HasPrefix(data, []byte("GIF8")):
		return domain.ContentTypeImage, true
	}

	head := bytes.ToLower(bytes.TrimSpace(data[:min(len(data), 512)]))
	if bytes.Contains(head, []byte("<!doctype html")) || bytes.Contains(head, []byte("<html")) {
		return domain.ContentTypeHTML, true
	}
	return domain.ContentTypeBinary, false
}

// looksLikeText reports whether the head of the payload is plausibly plain
// text: valid UTF-8 with no null bytes.
func looksLikeText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	head := data[:min(len(data), 512)]
	if bytes.IndexByte(head, 0) != -1 {
		return false
	}
	return utf8.Valid(head)
}

// sniffZipInterior distinguishes OOXML formats by their well-known interior
// directories.
func sniffZipInterior(data []byte) domain.ContentType {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return domain.ContentTypeBinary
	}
	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, "word/"):
			return domain.ContentTypeDOCX
		case strings.HasPrefix(f.Name, "xl/"):
			return domain.ContentTypeXLSX
		case strings.HasPrefix(f.Name, "ppt/"):
			return domain.ContentTypePPTX
		}
	}
	return domain.ContentTypeBinary
}
