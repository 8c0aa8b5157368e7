package ocr

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/config"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

// MaxDocumentBytes is the synchronous OCR API's payload ceiling.
const MaxDocumentBytes = 5 * 1024 * 1024

var (
	// ErrDocumentTooLarge means the payload exceeds the synchronous API limit.
	ErrDocumentTooLarge = errors.New("document exceeds OCR size limit")

	// ErrDisabled means OCR was turned off by configuration.
	ErrDisabled = errors.New("ocr is disabled")
)

// formLikePattern marks filenames worth the costlier structured analysis:
// forms and financial paperwork carry tables and key/value pairs that plain
// line detection flattens.
var formLikePattern = regexp.MustCompile(`(?i)\b(form|invoice|receipt|tax|w2|w-2|1099)\b|w2|1099`)

// api is the slice of the managed OCR surface the engine calls.
type api interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
	AnalyzeDocument(ctx context.Context, params *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
}

// Engine runs documents through managed OCR and reassembles the result.
type Engine struct {
	client   api
	log      logger.Interface
	disabled bool
}

// NewEngine wires an engine over an existing OCR client. Used directly by
// tests; production code goes through Connect.
func NewEngine(client api, log logger.Interface) *Engine {
	return &Engine{client: client, log: log}
}

// Connect builds the managed OCR client from ambient AWS credentials.
func Connect(ctx context.Context, cfg config.OCRConfig, log logger.Interface) (*Engine, error) {
	if cfg.Disabled {
		return &Engine{disabled: true, log: log}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load ocr credentials: %w", err)
	}
	return &Engine{client: textract.NewFromConfig(awsCfg), log: log}, nil
}

// ExtractText OCRs a document and returns the reconstructed text and page
// count. Filenames that look like forms get the structured TABLES+FORMS
// analysis; everything else gets plain text detection.
func (e *Engine) ExtractText(ctx context.Context, filename string, data []byte) (string, int, error) {
	if e.disabled {
		return "", 0, ErrDisabled
	}
	if len(data) > MaxDocumentBytes {
		return "", 0, fmt.Errorf("%d bytes: %w", len(data), ErrDocumentTooLarge)
	}
	if len(data) == 0 {
		return "", 0, errors.New("empty document")
	}

	var (
		raw []types.Block
		err error
	)
	if formLikePattern.MatchString(strings.ToLower(filename)) {
		e.log.Debug("ocr analyze", "filename", filename, "bytes", len(data))
		var out *textract.AnalyzeDocumentOutput
		out, err = e.client.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
			Document:     &types.Document{Bytes: data},
			FeatureTypes: []types.FeatureType{types.FeatureTypeTables, types.FeatureTypeForms},
		})
		if out != nil {
			raw = out.Blocks
		}
	} else {
		e.log.Debug("ocr detect", "filename", filename, "bytes", len(data))
		var out *textract.DetectDocumentTextOutput
		out, err = e.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
			Document: &types.Document{Bytes: data},
		})
		if out != nil {
			raw = out.Blocks
		}
	}
	if err != nil {
		return "", 0, fmt.Errorf("ocr call failed: %w", err)
	}

	blocks := convertBlocks(raw)
	return Assemble(blocks), PageCount(blocks), nil
}

func convertBlocks(raw []types.Block) []Block {
	blocks := make([]Block, 0, len(raw))
	for _, rb := range raw {
		b := Block{
			BlockType:       BlockType(rb.BlockType),
			SelectionStatus: string(rb.SelectionStatus),
		}
		if rb.Id != nil {
			b.ID = *rb.Id
		}
		if rb.Text != nil {
			b.Text = *rb.Text
		}
		if rb.Page != nil {
			b.Page = int(*rb.Page)
		}
		if rb.Confidence != nil {
			b.Confidence = float64(*rb.Confidence)
		}
		if rb.RowIndex != nil {
			b.RowIndex = int(*rb.RowIndex)
		}
		if rb.ColumnIndex != nil {
			b.ColumnIndex = int(*rb.ColumnIndex)
		}
		for _, et := range rb.EntityTypes {
			b.EntityTypes = append(b.EntityTypes, string(et))
		}
		for _, rel := range rb.Relationships {
			b.Relationships = append(b.Relationships, Relationship{
				Type: string(rel.Type),
				IDs:  rel.Ids,
			})
		}
		if rb.Geometry != nil && rb.Geometry.BoundingBox != nil {
			bb := rb.Geometry.BoundingBox
			b.Box = &Box{
				Top:    float64(bb.Top),
				Left:   float64(bb.Left),
				Width:  float64(bb.Width),
				Height: float64(bb.Height),
			}
		}
		blocks = append(blocks, b)
	}
	return blocks
}
