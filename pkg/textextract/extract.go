package textextract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Result is what the converter hands back: the raw text plus the counts the
// document row records.
type Result struct {
	Text   string
	Pages  int
	Words  int
	Method string
}

// Extract converts a document blob to plain text. fileType accepts an
// extension or a MIME type.
func Extract(data io.ReaderAt, size int64, fileType string) (*Result, error) {
	var res *Result
	var err error
	switch strings.ToLower(fileType) {
	case ".pdf", "pdf", "application/pdf":
		res, err = extractPDF(data, size)
	case ".docx", "docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		res, err = extractDOCX(data, size)
	case ".txt", "txt", "text/plain":
		res, err = extractTXT(data, size)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", fileType)
	}
	if err != nil {
		return nil, err
	}
	res.Words = len(strings.Fields(res.Text))
	return res, nil
}

func SupportedTypes() []string {
	return []string{".pdf", ".docx", ".txt"}
}

func extractPDF(data io.ReaderAt, size int64) (*Result, error) {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var buf strings.Builder
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}

	return &Result{
		Text:   buf.String(),
		Pages:  numPages,
		Method: "pdf",
	}, nil
}

func extractDOCX(data io.ReaderAt, size int64) (*Result, error) {
	reader, err := zip.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open DOCX: %w", err)
	}

	var buf strings.Builder
	for _, f := range reader.File {
		if filepath.Base(f.Name) == "document.xml" {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("open document.xml: %w", err)
			}
			defer rc.Close()

			content, err := io.ReadAll(rc)
			if err != nil {
				return nil, fmt.Errorf("read document.xml: %w", err)
			}

			buf.WriteString(stripXMLTags(string(content)))
			break
		}
	}

	return &Result{
		Text:   buf.String(),
		Pages:  1,
		Method: "docx",
	}, nil
}

func extractTXT(data io.ReaderAt, size int64) (*Result, error) {
	buf := make([]byte, size)
	_, err := data.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read TXT: %w", err)
	}

	return &Result{
		Text:   string(bytes.TrimSpace(buf)),
		Pages:  1,
		Method: "txt",
	}, nil
}

func stripXMLTags(s string) string {
	var result strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			result.WriteRune(' ')
		case !inTag:
			result.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(result.String()), " ")
}
