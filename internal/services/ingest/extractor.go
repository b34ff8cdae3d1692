package ingest

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	goexcel "github.com/VantageDataChat/GoExcel"
	goword "github.com/VantageDataChat/GoWord"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/models"
)

// maxSheetRows bounds how many rows of each spreadsheet sheet are extracted
const maxSheetRows = 1000

// extractFunc turns raw file bytes into text
type extractFunc func(data []byte) (string, error)

// Extractor dispatches raw bytes to the parser for their file type
type Extractor struct {
	parsers map[models.FileType]extractFunc
}

// NewExtractor creates an extractor for every supported file type
func NewExtractor() *Extractor {
	return &Extractor{
		parsers: map[models.FileType]extractFunc{
			models.FileTypePDF:  extractPDF,
			models.FileTypeDOCX: extractDOCX,
			models.FileTypeXLSX: extractSpreadsheet,
			models.FileTypeXLS:  extractSpreadsheet,
			models.FileTypeTXT:  decodeText,
			models.FileTypeMD:   extractMarkdown,
			models.FileTypeHTML: HTMLToText,
		},
	}
}

// Supports reports whether the extractor has a parser for fileType
func (e *Extractor) Supports(fileType models.FileType) bool {
	_, ok := e.parsers[fileType]
	return ok
}

// Extract returns the raw (not yet normalized) text of data.
// Parser panics on malformed input are reported as extraction errors.
func (e *Extractor) Extract(fileType models.FileType, data []byte) (content string, err error) {
	parse, ok := e.parsers[fileType]
	if !ok {
		return "", fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, fileType)
	}

	defer func() {
		if r := recover(); r != nil {
			content = ""
			err = fmt.Errorf("%w: %s parser panicked: %v", common.ErrExtraction, fileType, r)
		}
	}()

	content, err = parse(data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", common.ErrExtraction, fileType, err)
	}
	return content, nil
}

// ResolveFileType maps a declared type, or the filename extension when none is declared, to a FileType
func ResolveFileType(declaredType, filename string) (models.FileType, error) {
	candidate := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(declaredType), "."))
	if candidate == "" {
		candidate = strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	}

	switch candidate {
	case "pdf":
		return models.FileTypePDF, nil
	case "docx":
		return models.FileTypeDOCX, nil
	case "xlsx":
		return models.FileTypeXLSX, nil
	case "xls":
		return models.FileTypeXLS, nil
	case "txt", "text":
		return models.FileTypeTXT, nil
	case "md", "markdown":
		return models.FileTypeMD, nil
	case "html", "htm":
		return models.FileTypeHTML, nil
	}
	return "", fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, candidate)
}

// inspectPDF reads the document structure and returns its page count
func inspectPDF(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("unreadable PDF structure: %w", err)
	}
	return ctx.PageCount, nil
}

// extractPDF emits each non-empty page as "Page N:" followed by its text
func extractPDF(data []byte) (string, error) {
	pageCount, err := inspectPDF(data)
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("error creating PDF reader: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(content) != "" {
			pages = append(pages, fmt.Sprintf("Page %d:\n%s", i, content))
		}
	}

	if len(pages) == 0 {
		// Some producers only yield text through the whole-document stream
		plain, err := reader.GetPlainText()
		if err != nil {
			return "", fmt.Errorf("could not read content of pdf: %w", err)
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, plain); err != nil {
			return "", fmt.Errorf("could not read content of pdf: %w", err)
		}
		if strings.TrimSpace(buf.String()) == "" {
			return "", fmt.Errorf("no extractable text in %d pages, the PDF may be scanned images", pageCount)
		}
		return buf.String(), nil
	}

	return strings.Join(pages, "\n\n"), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := goword.OpenFromBytes(data)
	if err != nil {
		return "", err
	}
	return doc.ExtractText(), nil
}

// extractSpreadsheet emits each sheet as "Sheet: name" followed by "Row N: a | b | c" lines
func extractSpreadsheet(data []byte) (string, error) {
	wb, err := goexcel.NewXLSXReader().Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var sheets []string
	for _, name := range wb.GetSheetNames() {
		sheet, err := wb.GetSheetByName(name)
		if err != nil {
			continue
		}
		rows, err := sheet.RowIterator()
		if err != nil {
			continue
		}

		lines := []string{"Sheet: " + name}
		for rowIdx, row := range rows {
			if rowIdx >= maxSheetRows {
				break
			}
			var values []string
			for _, cell := range row {
				if cell == nil || cell.IsEmpty() {
					continue
				}
				if val := strings.TrimSpace(cell.GetFormattedValue()); val != "" {
					values = append(values, val)
				}
			}
			if len(values) > 0 {
				lines = append(lines, fmt.Sprintf("Row %d: %s", rowIdx+1, strings.Join(values, " | ")))
			}
		}
		if len(lines) > 1 {
			sheets = append(sheets, strings.Join(lines, "\n"))
		}
	}

	return strings.Join(sheets, "\n\n"), nil
}

func extractMarkdown(data []byte) (string, error) {
	content, err := decodeText(data)
	if err != nil {
		return "", err
	}
	return MarkdownToText([]byte(content)), nil
}
