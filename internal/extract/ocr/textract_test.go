package ocr_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/extract/ocr"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

type fakeTextract struct {
	detectCalls  int
	analyzeCalls int
	detectFunc   func(*textract.DetectDocumentTextInput) (*textract.DetectDocumentTextOutput, error)
	analyzeFunc  func(*textract.AnalyzeDocumentInput) (*textract.AnalyzeDocumentOutput, error)
}

func (f *fakeTextract) DetectDocumentText(_ context.Context, in *textract.DetectDocumentTextInput, _ ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error) {
	f.detectCalls++
	if f.detectFunc != nil {
		return f.detectFunc(in)
	}
	return &textract.DetectDocumentTextOutput{}, nil
}

func (f *fakeTextract) AnalyzeDocument(_ context.Context, in *textract.AnalyzeDocumentInput, _ ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error) {
	f.analyzeCalls++
	if f.analyzeFunc != nil {
		return f.analyzeFunc(in)
	}
	return &textract.AnalyzeDocumentOutput{}, nil
}

func lineBlock(id, text string) types.Block {
	return types.Block{
		Id:        aws.String(id),
		BlockType: types.BlockTypeLine,
		Text:      aws.String(text),
		Page:      aws.Int32(1),
	}
}

func TestExtractTextRoutesByFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename    string
		wantAnalyze bool
	}{
		{"report.pdf", false},
		{"scan_001.png", false},
		{"invoice_march.pdf", true},
		{"Tax-Return-2024.pdf", true},
		{"w2_2023.png", true},
		{"form-1099.pdf", true},
		{"receipt.jpg", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			t.Parallel()

			fake := &fakeTextract{}
			engine := ocr.NewEngine(fake, logger.NewNoop())

			if _, _, err := engine.ExtractText(context.Background(), tt.filename, []byte("img")); err != nil {
				t.Fatalf("ExtractText: %v", err)
			}
			if tt.wantAnalyze && fake.analyzeCalls != 1 {
				t.Errorf("analyze calls = %d, want 1", fake.analyzeCalls)
			}
			if !tt.wantAnalyze && fake.detectCalls != 1 {
				t.Errorf("detect calls = %d, want 1", fake.detectCalls)
			}
		})
	}
}

func TestExtractTextAssemblesBlocks(t *testing.T) {
	t.Parallel()

	fake := &fakeTextract{
		detectFunc: func(*textract.DetectDocumentTextInput) (*textract.DetectDocumentTextOutput, error) {
			return &textract.DetectDocumentTextOutput{
				Blocks: []types.Block{lineBlock("l1", "hello ocr")},
			}, nil
		},
	}
	engine := ocr.NewEngine(fake, logger.NewNoop())

	text, pages, err := engine.ExtractText(context.Background(), "scan.png", []byte("img"))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(text, "hello ocr") {
		t.Errorf("text = %q, want line content", text)
	}
	if pages != 1 {
		t.Errorf("pages = %d, want 1", pages)
	}
}

func TestExtractTextRejectsOversized(t *testing.T) {
	t.Parallel()

	engine := ocr.NewEngine(&fakeTextract{}, logger.NewNoop())
	big := make([]byte, ocr.MaxDocumentBytes+1)

	_, _, err := engine.ExtractText(context.Background(), "scan.png", big)
	if !errors.Is(err, ocr.ErrDocumentTooLarge) {
		t.Errorf("err = %v, want ErrDocumentTooLarge", err)
	}
}

func TestExtractTextPropagatesProviderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("throttled")
	fake := &fakeTextract{
		detectFunc: func(*textract.DetectDocumentTextInput) (*textract.DetectDocumentTextOutput, error) {
			return nil, boom
		},
	}
	engine := ocr.NewEngine(fake, logger.NewNoop())

	_, _, err := engine.ExtractText(context.Background(), "scan.png", []byte("img"))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped provider error", err)
	}
}
