package models

import "time"

// FileType enumerates the content shapes the extractor dispatches on.
type FileType string

const (
	FileTypePDF     FileType = "pdf"
	FileTypeDoc     FileType = "doc"
	FileTypeDocx    FileType = "docx"
	FileTypeAspx    FileType = "aspx"
	FileTypeUnknown FileType = "unknown"
)

// KnowledgeDocument is a candidate document discovered by a provider search.
// Immutable once constructed; discarded after the pipeline pass that produced it.
type KnowledgeDocument struct {
	ID           string
	Title        string
	WebURL       string
	FileType     FileType
	LastModified time.Time
	SiteURL      string
	SiteName     string
	DriveID      string
	DriveItemID  string
}

// InferFileType falls back to extension-based inference when a search hit
// omits fileType. Unknown extensions map to FileTypeUnknown rather than
// erroring — the extractor treats that as an empty extract.
func InferFileType(filename string) FileType {
	lower := filename
	for i := len(lower) - 1; i >= 0; i-- {
		if lower[i] == '.' {
			ext := lower[i+1:]
			switch ext {
			case "pdf":
				return FileTypePDF
			case "doc":
				return FileTypeDoc
			case "docx":
				return FileTypeDocx
			case "aspx":
				return FileTypeAspx
			}
			return FileTypeUnknown
		}
		if lower[i] == '/' {
			break
		}
	}
	return FileTypeUnknown
}
