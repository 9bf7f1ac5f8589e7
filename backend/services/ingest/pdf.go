package ingest

import (
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/healthscope/symptom-checker/backend/services"
)

// ExtractPDFText pulls the plain text out of a PDF. Scanned or image-only
// PDFs yield no text and are reported as extraction errors so the caller can
// tell the uploader instead of indexing an empty document.
func ExtractPDFText(r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", services.WrapExtraction("document could not be read", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", services.WrapExtraction("document could not be read", err)
	}

	var b strings.Builder
	if _, err := io.Copy(&b, textReader); err != nil {
		return "", services.WrapExtraction("document could not be read", err)
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", services.ErrNoExtractableText
	}

	return text, nil
}
