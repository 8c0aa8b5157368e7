package objectstore_test

import (
	"strings"
	"testing"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/objectstore"
)

func TestSanitizeComponent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a/b\\c", "a_b_c"},
		{"q3 report: final?", "q3_report__final_"},
		{`<a>|"b"*`, "_a___b__"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		if got := objectstore.SanitizeComponent(tt.in); got != tt.want {
			t.Errorf("SanitizeComponent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeySchema(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{
			"document body",
			objectstore.DocumentKey("u-1", "t-1", "d-1", "pdf"),
			"crawled_documents/u-1/t-1/d-1.pdf",
		},
		{
			"document body strips dotted extension",
			objectstore.DocumentKey("u-1", "t-1", "d-1", ".html"),
			"crawled_documents/u-1/t-1/d-1.html",
		},
		{
			"metadata sidecar",
			objectstore.MetadataKey("u-1", "t-1", "d-1"),
			"crawled_documents/u-1/t-1/d-1_metadata.json",
		},
		{
			"upload",
			objectstore.UploadKey("u-1", "f-1", "q3 report.pdf"),
			"uploaded_documents/u-1/f-1/q3_report.pdf",
		},
		{
			"temp staging",
			objectstore.TempKey("f-1", "page_001.png"),
			"temp/f-1/page_001.png",
		},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s key = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

// Every artifact of a task must live under its TaskPrefix or DeleteTask
// leaves orphans behind.
func TestTaskPrefixCoversTaskArtifacts(t *testing.T) {
	t.Parallel()

	prefix := objectstore.TaskPrefix("user one", "t/1")
	if !strings.HasSuffix(prefix, "/") {
		t.Fatalf("prefix %q does not end in a slash", prefix)
	}

	keys := []string{
		objectstore.DocumentKey("user one", "t/1", "d-1", "html"),
		objectstore.MetadataKey("user one", "t/1", "d-1"),
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			t.Errorf("key %q not under task prefix %q", key, prefix)
		}
	}

	other := objectstore.DocumentKey("user one", "t-2", "d-1", "html")
	if strings.HasPrefix(other, prefix) {
		t.Errorf("key %q from another task matches prefix %q", other, prefix)
	}
}

func TestTempRootPrefixCoversTempKeys(t *testing.T) {
	t.Parallel()

	key := objectstore.TempKey("f-1", "page_001.png")
	if !strings.HasPrefix(key, objectstore.TempRootPrefix()) {
		t.Errorf("temp key %q not under %q", key, objectstore.TempRootPrefix())
	}
	if strings.HasPrefix(objectstore.DocumentKey("u", "t", "d", "pdf"), objectstore.TempRootPrefix()) {
		t.Error("document key matches the temp prefix")
	}
}
