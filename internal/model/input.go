package model

import (
	"strconv"
	"strings"
)

// FileRef is a binary document selected by the user
type FileRef struct {
	Name        string // Base name sent as the multipart filename
	Size        int64  // Byte size
	ContentType string // Declared (sniffed) content type
	Data        []byte // Raw payload
}

// InputSource holds the user's current document selection.
// A file and pasted text may both be present; submission prefers the file.
type InputSource struct {
	File *FileRef
	Text string
}

// HasFile reports whether a file is selected
func (s InputSource) HasFile() bool {
	return s.File != nil
}

// HasText reports whether non-blank text is present
func (s InputSource) HasText() bool {
	return strings.TrimSpace(s.Text) != ""
}

// Empty reports whether there is nothing to submit
func (s InputSource) Empty() bool {
	return !s.HasFile() && !s.HasText()
}

// Describe returns a short human-readable label for logs and the REPL
func (s InputSource) Describe() string {
	switch {
	case s.HasFile():
		return "file:" + s.File.Name
	case s.HasText():
		return "text:" + strconv.Itoa(len(s.Text)) + " chars"
	default:
		return "none"
	}
}

