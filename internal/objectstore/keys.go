package objectstore

import (
	"fmt"
	"strings"
)

// Key prefixes for the three artifact families.
const (
	crawledPrefix  = "crawled_documents"
	uploadedPrefix = "uploaded_documents"
	tempPrefix     = "temp"
)

// ExtensionProbeOrder is the candidate order used to locate a document body
// when its sidecar is missing.
var ExtensionProbeOrder = []string{"html", "pdf", "docx", "xlsx", "pptx", "csv", "json", "txt"}

var keyComponentReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	" ", "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeComponent makes a string safe to embed as one key path component.
func SanitizeComponent(component string) string {
	sanitized := keyComponentReplacer.Replace(component)
	if sanitized == "" {
		return "unknown"
	}
	return sanitized
}

// DocumentKey is the body location for a crawled artifact.
func DocumentKey(userID, taskID, docID, ext string) string {
	return fmt.Sprintf("%s/%s/%s/%s.%s",
		crawledPrefix,
		SanitizeComponent(userID),
		SanitizeComponent(taskID),
		SanitizeComponent(docID),
		strings.TrimPrefix(ext, "."),
	)
}

// MetadataKey is the sidecar location for a crawled artifact.
func MetadataKey(userID, taskID, docID string) string {
	return fmt.Sprintf("%s/%s/%s/%s_metadata.json",
		crawledPrefix,
		SanitizeComponent(userID),
		SanitizeComponent(taskID),
		SanitizeComponent(docID),
	)
}

// TaskPrefix is the shared prefix of all artifacts belonging to one task.
func TaskPrefix(userID, taskID string) string {
	return fmt.Sprintf("%s/%s/%s/",
		crawledPrefix,
		SanitizeComponent(userID),
		SanitizeComponent(taskID),
	)
}

// UploadKey is the location of a user-uploaded file.
func UploadKey(userID, fileID, filename string) string {
	return fmt.Sprintf("%s/%s/%s/%s",
		uploadedPrefix,
		SanitizeComponent(userID),
		SanitizeComponent(fileID),
		SanitizeComponent(filename),
	)
}

// TempKey is the location of an intermediate artifact, like a rendered page
// image awaiting OCR.
func TempKey(fileID, filename string) string {
	return fmt.Sprintf("%s/%s/%s",
		tempPrefix,
		SanitizeComponent(fileID),
		SanitizeComponent(filename),
	)
}

// TempRootPrefix is the shared prefix of all intermediate artifacts.
// Extraction cleans its own staging up; anything surviving under this
// prefix is leftover from a crashed run.
func TempRootPrefix() string {
	return tempPrefix + "/"
}
