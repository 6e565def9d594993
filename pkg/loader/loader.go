// Package loader is the external-collaborator-facing boundary (§1, §6):
// it turns uploaded bytes of a known format into plain text, so the
// orchestrator never has to know about file formats. The core ingest
// contract only ever sees (raw_text, source_id).
package loader

import "fmt"

// FileType enumerates the formats the loader can extract text from.
type FileType string

const (
	FileTypePlainText FileType = "text"
	FileTypeMarkdown  FileType = "markdown"
	FileTypePDF       FileType = "pdf"
	FileTypeDOCX      FileType = "docx"
)

// Extractor turns raw file bytes into plain text.
type Extractor interface {
	Extract(content []byte) (string, error)
}

// ForType returns the Extractor registered for fileType, or an error if
// the type is unsupported.
func ForType(fileType FileType) (Extractor, error) {
	switch fileType {
	case FileTypePlainText, FileTypeMarkdown:
		return plainTextExtractor{}, nil
	case FileTypePDF:
		return pdfExtractor{}, nil
	case FileTypeDOCX:
		return docxExtractor{}, nil
	default:
		return nil, fmt.Errorf("loader: unsupported file type %q", fileType)
	}
}

type plainTextExtractor struct{}

func (plainTextExtractor) Extract(content []byte) (string, error) {
	return string(content), nil
}
