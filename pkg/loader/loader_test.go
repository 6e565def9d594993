package loader

import "testing"

func TestForType_PlainTextRoundTrips(t *testing.T) {
	t.Parallel()

	e, err := ForType(FileTypePlainText)
	if err != nil {
		t.Fatalf("ForType: %v", err)
	}
	got, err := e.Extract([]byte("hello world"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestForType_UnsupportedType(t *testing.T) {
	t.Parallel()

	if _, err := ForType("unknown"); err == nil {
		t.Fatalf("expected error for unsupported file type")
	}
}

func TestDocxExtractor_ExtractsTextRuns(t *testing.T) {
	t.Parallel()

	buf := buildTestDocx(t, `<w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> world</w:t></w:r></w:p>`)

	e := docxExtractor{}
	got, err := e.Extract(buf)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Hello world" {
		t.Fatalf("got %q", got)
	}
}
