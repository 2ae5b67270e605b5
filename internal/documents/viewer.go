package documents

import (
	"regexp"
	"strings"

	"github.com/jomosautsem/lex/pkg/models"
)

// Viewer is how the file viewer renders a document.
type Viewer string

const (
	ViewerPDF      Viewer = "pdf"
	ViewerImage    Viewer = "image"
	ViewerDownload Viewer = "download"
	// ViewerMissing: the document has no URL to show.
	ViewerMissing Viewer = "missing"
)

var reImage = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)$`)

// Classify picks the viewer from the document's file name.
func Classify(d models.Document) Viewer {
	switch {
	case d.URL == "":
		return ViewerMissing
	case strings.HasSuffix(strings.ToLower(d.Name), ".pdf"):
		return ViewerPDF
	case reImage.MatchString(d.Name):
		return ViewerImage
	default:
		return ViewerDownload
	}
}
