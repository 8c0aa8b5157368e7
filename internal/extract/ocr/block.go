// Package ocr reconstructs readable text from the block graph a managed OCR
// service returns: pages, lines, tables, and key/value form pairs.
package ocr

// BlockType names one node kind in the OCR block graph.
type BlockType string

const (
	BlockTypePage             BlockType = "PAGE"
	BlockTypeLine             BlockType = "LINE"
	BlockTypeWord             BlockType = "WORD"
	BlockTypeTable            BlockType = "TABLE"
	BlockTypeCell             BlockType = "CELL"
	BlockTypeKeyValueSet      BlockType = "KEY_VALUE_SET"
	BlockTypeSelectionElement BlockType = "SELECTION_ELEMENT"
)

// Relationship kinds and entity types used by the graph.
const (
	RelationshipChild = "CHILD"
	RelationshipValue = "VALUE"

	EntityKey   = "KEY"
	EntityValue = "VALUE"

	SelectionSelected = "SELECTED"
)

// Box is a block's position in page-relative coordinates (0..1).
type Box struct {
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

// Relationship points from one block to others by id.
type Relationship struct {
	Type string
	IDs  []string
}

// Block is one node of the OCR result graph. The graph arrives as a flat
// slice; Assemble stitches it back together by id.
type Block struct {
	ID              string
	BlockType       BlockType
	Text            string
	Page            int
	Confidence      float64
	RowIndex        int
	ColumnIndex     int
	EntityTypes     []string
	SelectionStatus string
	Relationships   []Relationship
	Box             *Box
}

func (b *Block) hasEntity(entity string) bool {
	for _, e := range b.EntityTypes {
		if e == entity {
			return true
		}
	}
	return false
}

func (b *Block) childIDs() []string {
	return b.relatedIDs(RelationshipChild)
}

func (b *Block) relatedIDs(relType string) []string {
	var ids []string
	for _, rel := range b.Relationships {
		if rel.Type == relType {
			ids = append(ids, rel.IDs...)
		}
	}
	return ids
}
