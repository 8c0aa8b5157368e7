package objectstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sidecar is the JSON descriptor written next to every stored document.
// Field order is the serialization order, so sidecars diff cleanly.
type Sidecar struct {
	DocID            string            `json:"doc_id"`
	URL              string            `json:"url"`
	Title            string            `json:"title"`
	ContentType      string            `json:"content_type"`
	ContentLength    int               `json:"content_length"`
	RawContentLength int               `json:"raw_content_length"`
	FetchedAt        time.Time         `json:"fetched_at"`
	StatusCode       int               `json:"status_code"`
	Headers          map[string]string `json:"headers,omitempty"`
	Domain           string            `json:"domain"`
	Filename         string            `json:"filename"`
	StoredAt         time.Time         `json:"stored_at"`
	BodyKey          string            `json:"body_key"`
	MetadataKey      string            `json:"metadata_key"`
	UserID           string            `json:"user_id"`
	TaskID           string            `json:"task_id"`
}

// EncodeSidecar renders the sidecar as pretty-printed JSON.
func EncodeSidecar(sc *Sidecar) ([]byte, error) {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal sidecar for %s: %w", sc.DocID, err)
	}
	return data, nil
}

// DecodeSidecar parses a sidecar blob.
func DecodeSidecar(data []byte) (*Sidecar, error) {
	var sc Sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("unmarshal sidecar: %w", err)
	}
	return &sc, nil
}
