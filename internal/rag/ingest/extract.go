package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

// Extractor turns a file on disk into plain text. Unsupported extensions give "" and no error.
type Extractor interface {
	Extract(ctx context.Context, path string, ext string) (string, error)
}

type FileExtractor struct {
	PageTimeout time.Duration
	logger      *logger_i.Logger
}

func NewFileExtractor() *FileExtractor {
	return &FileExtractor{
		PageTimeout: config.PDFPageExtractTimeout,
		logger:      logger_i.NewLogger("Text Extraction"),
	}
}

func getDocType(ext string) commonModels.DocType {
	switch strings.ToLower(ext) {
	case ".pdf":
		return commonModels.PDF
	// legacy binary .doc has no parser and is left unsupported
	case ".docx", ".rtf", ".odt":
		return commonModels.DOCX
	case ".txt", ".md":
		return commonModels.TXT
	default:
		return commonModels.ERR
	}
}

// extensionOf prefers an explicit extension and falls back to the file name.
func extensionOf(path string, ext string) string {
	if ext == "" {
		ext = filepath.Ext(path)
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.ToLower(ext)
}

func (e *FileExtractor) Extract(ctx context.Context, path string, ext string) (string, error) {
	log := e.logger.FromContext(ctx, config.TRACE_ID_KEY)
	docType := getDocType(extensionOf(path, ext))
	log.Debug("extracting text", "type", docType)

	switch docType {
	case commonModels.PDF:
		return e.extractPDF(ctx, path)
	case commonModels.DOCX, commonModels.TXT:
		text, err := cat.File(path)
		if err != nil {
			return "", fmt.Errorf("failed to extract %s: %w", docType, err)
		}
		if !utf8.ValidString(text) {
			log.Warn("extracted text is not valid UTF-8, treating as unreadable", "type", docType)
			return "", nil
		}
		return text, nil
	default:
		log.Warn("unsupported document type", "ext", ext)
		return "", nil
	}
}

func (e *FileExtractor) extractPDF(ctx context.Context, path string) (string, error) {
	log := e.logger.FromContext(ctx, config.TRACE_ID_KEY)
	f, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var sb strings.Builder
	numPages := f.NumPage()
	log.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := e.protectExtract(ctx, page)
		if err != nil {
			// one unreadable page should not lose the rest of the document
			log.Warn("Error parsing page content", "page", i, "error", err)
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(content)
	}
	return sb.String(), nil
}

var errPageTimeout = errors.New("pdf page extraction timed out")

func (e *FileExtractor) protectExtract(ctx context.Context, page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	timer := time.NewTimer(e.PageTimeout)
	defer timer.Stop()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-timer.C:
		return "", errPageTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
