package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Synthetic page geometry: roughly A4 at 150 DPI with a fixed 7x13 face.
const (
	synthWidth      = 1240
	synthHeight     = 1754
	synthMargin     = 40
	synthLineHeight = 16
	synthCharWidth  = 7
)

// TextImages draws each page's text onto a plain white PNG so an OCR service
// can read it back. Last-resort path for documents nothing else could render.
func TextImages(pages []string) ([][]byte, error) {
	images := make([][]byte, 0, len(pages))
	for i, text := range pages {
		img, err := textImage(text)
		if err != nil {
			return nil, fmt.Errorf("synthesize page %d: %w", i+1, err)
		}
		images = append(images, img)
	}
	return images, nil
}

func textImage(text string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, synthWidth, synthHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}

	maxCols := (synthWidth - 2*synthMargin) / synthCharWidth
	maxRows := (synthHeight - 2*synthMargin) / synthLineHeight

	row := 0
	for _, line := range wrapLines(text, maxCols) {
		if row >= maxRows {
			break
		}
		drawer.Dot = fixed.P(synthMargin, synthMargin+row*synthLineHeight)
		drawer.DrawString(line)
		row++
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// wrapLines splits text into display lines no wider than maxCols runes,
// breaking on word boundaries where possible.
func wrapLines(text string, maxCols int) []string {
	if maxCols <= 0 {
		maxCols = 80
	}

	var out []string
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimRight(raw, " \t")
		if raw == "" {
			out = append(out, "")
			continue
		}
		for len([]rune(raw)) > maxCols {
			runes := []rune(raw)
			cut := maxCols
			for i := maxCols; i > 0; i-- {
				if runes[i-1] == ' ' {
					cut = i
					break
				}
			}
			out = append(out, strings.TrimRight(string(runes[:cut]), " "))
			raw = strings.TrimLeft(string(runes[cut:]), " ")
		}
		out = append(out, raw)
	}
	return out
}
