package services

import (
	"strings"
	"testing"
)

func TestMimeFromFileName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"curriculo.pdf", "application/pdf"},
		{"Curriculo.PDF", "application/pdf"},
		{"cv.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"notes.txt", "text/plain"},
		{"photo.png", "application/octet-stream"},
		{"no-extension", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := mimeFromFileName(tt.filename); got != tt.want {
			t.Errorf("mimeFromFileName(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestExtractResumeTextPlain(t *testing.T) {
	text, err := ExtractResumeText("text/plain", []byte("João Silva\nEngenheiro de Software"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(text, "João Silva") {
		t.Errorf("Expected plain text passed through, got %q", text)
	}
}

func TestExtractResumeTextUnsupported(t *testing.T) {
	_, err := ExtractResumeText("image/png", []byte{0x89, 0x50})
	if err == nil {
		t.Fatal("Expected error for unsupported mime type")
	}
	if !strings.Contains(err.Error(), "unsupported file type") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestExtractResumeTextCorruptPDF(t *testing.T) {
	if _, err := ExtractResumeText("application/pdf", []byte("not a pdf")); err == nil {
		t.Fatal("Expected error for corrupt PDF data")
	}
}
