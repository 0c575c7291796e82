// Package input builds the document selection from a file path, pasted text,
// stdin or a web page, enforcing the accepted types and the size limit.
package input

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/ppiankov/clauseguard/internal/model"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
)

var (
	// ErrUnsupportedType is returned for anything other than PDF, DOCX or plain text
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrFileTooLarge is returned when a document exceeds input.max_file_bytes
	ErrFileTooLarge = errors.New("document too large")

	// ErrCorruptDocument is returned when a PDF or DOCX cannot be opened
	ErrCorruptDocument = errors.New("document cannot be read")

	// ErrEmptyDocument is returned for zero-byte files and blank text
	ErrEmptyDocument = errors.New("document is empty")
)

// Extensions that must agree with the sniffed type
var extensionTypes = map[string]string{
	".pdf":  MimePDF,
	".docx": MimeDOCX,
	".txt":  MimeText,
	".text": MimeText,
	".md":   MimeText,
}

// Loader validates documents before they are submitted
type Loader struct {
	maxBytes int64
	log      *slog.Logger
}

// NewLoader creates a loader with the given size limit
func NewLoader(maxBytes int64, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{maxBytes: maxBytes, log: log}
}

// LoadFile reads and validates the document at path
func (l *Loader) LoadFile(path string) (*model.FileRef, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if l.maxBytes > 0 && info.Size() > l.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, path, info.Size(), l.maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return l.FromBytes(filepath.Base(path), data)
}

// FromBytes validates an in-memory document
func (l *Loader) FromBytes(name string, data []byte) (*model.FileRef, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, name)
	}
	if l.maxBytes > 0 && int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, name, len(data), l.maxBytes)
	}

	contentType, err := DetectType(name, data)
	if err != nil {
		return nil, err
	}

	switch contentType {
	case MimePDF:
		err = checkPDF(data)
	case MimeDOCX:
		err = checkDOCX(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	l.log.Debug("document loaded", "name", name, "bytes", len(data), "content_type", contentType)

	return &model.FileRef{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// ReadText reads pasted text from r, bounded by the size limit
func (l *Loader) ReadText(r io.Reader) (string, error) {
	limit := l.maxBytes
	if limit <= 0 {
		limit = 10 << 20
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%w: text exceeds %d bytes", ErrFileTooLarge, limit)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

// DetectType sniffs data and cross-checks the result against the file extension
func DetectType(name string, data []byte) (string, error) {
	detected := mimetype.Detect(data)

	var kind string
	switch {
	case detected.Is(MimePDF):
		kind = MimePDF
	case detected.Is(MimeDOCX), isZip(detected) && hasDocxBody(data):
		kind = MimeDOCX
	case descendsFrom(detected, MimeText):
		kind = MimeText
	default:
		return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, name, detected.String())
	}

	ext := strings.ToLower(filepath.Ext(name))
	if want, ok := extensionTypes[ext]; ok && want != kind {
		return "", fmt.Errorf("%w: %s has %s content", ErrUnsupportedType, name, kind)
	}

	return kind, nil
}

func descendsFrom(m *mimetype.MIME, target string) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(target) {
			return true
		}
	}
	return false
}

func isZip(m *mimetype.MIME) bool {
	return descendsFrom(m, "application/zip")
}

func hasDocxBody(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}

// checkPDF opens the PDF and requires at least one page
func checkPDF(data []byte) (err error) {
	// The PDF reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCorruptDocument, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	if reader.NumPage() == 0 {
		return fmt.Errorf("%w: pdf has no pages", ErrCorruptDocument)
	}
	return nil
}

func checkDOCX(data []byte) error {
	if !hasDocxBody(data) {
		return fmt.Errorf("%w: word/document.xml not found", ErrCorruptDocument)
	}
	return nil
}
