package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/timmy/finanalyzer/internal/domain"
)

func TestExtract(t *testing.T) {
	e := NewExtractor(0)
	ctx := context.Background()

	tests := []struct {
		name     string
		path     string
		wantKind Kind
		wantErr  error
		contains []string
	}{
		{"single page", "testdata/revenue.pdf", KindText, nil, []string{"Revenue: $100"}},
		{"blank page", "testdata/blank.pdf", KindEmpty, domain.ErrExtractionEmpty, nil},
		{"missing file", "testdata/nope.pdf", KindNotFound, domain.ErrExtractionNotFound, []string{"testdata/nope.pdf"}},
		{"directory", "testdata", KindNotFound, domain.ErrExtractionNotFound, nil},
		{"not a pdf", "testdata/corrupt.pdf", KindFailed, domain.ErrExtractionFailed, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Extract(ctx, tt.path)
			if res.Kind != tt.wantKind {
				t.Fatalf("Kind = %v, want %v (detail %q)", res.Kind, tt.wantKind, res.Detail)
			}
			err := res.Err()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Err() = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Err() = %v, want %v", err, tt.wantErr)
			}
			for _, s := range tt.contains {
				if !strings.Contains(res.Render(), s) {
					t.Errorf("Render() = %q, missing %q", res.Render(), s)
				}
			}
		})
	}
}

func TestExtractPageOrderAndNormalization(t *testing.T) {
	res := NewExtractor(0).Extract(context.Background(), "testdata/multipage.pdf")
	if res.Kind != KindText {
		t.Fatalf("Kind = %v, detail %q", res.Kind, res.Detail)
	}
	if res.Pages != 2 {
		t.Errorf("Pages = %d, want 2", res.Pages)
	}

	one := strings.Index(res.Text, "Page one")
	income := strings.Index(res.Text, "Net income: $25")
	two := strings.Index(res.Text, "Page two")
	if one < 0 || income < 0 || two < 0 || !(one < income && income < two) {
		t.Fatalf("pages out of order: %q", res.Text)
	}

	// The blank lines between "Page one" and "Net income" collapse to one newline.
	if !strings.Contains(res.Text, "Page one\nNet income: $25") {
		t.Errorf("newline runs not collapsed: %q", res.Text)
	}
	if !strings.HasSuffix(res.Text, "\n") {
		t.Errorf("text should end with page terminator: %q", res.Text)
	}
}

func TestExtractMaxPages(t *testing.T) {
	res := NewExtractor(1).Extract(context.Background(), "testdata/multipage.pdf")
	if res.Kind != KindText {
		t.Fatalf("Kind = %v", res.Kind)
	}
	if res.Pages != 1 || strings.Contains(res.Text, "Page two") {
		t.Errorf("expected only first page, got %d pages: %q", res.Pages, res.Text)
	}
}

func TestExtractCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewExtractor(0).Extract(ctx, "testdata/revenue.pdf")
	if res.Kind != KindFailed {
		t.Errorf("Kind = %v, want failed", res.Kind)
	}
}

func TestRender(t *testing.T) {
	path := filepath.Join("data", "x.pdf")
	tests := []struct {
		res  Result
		want string
	}{
		{Result{Kind: KindText, Text: "hello\n"}, "hello\n"},
		{Result{Kind: KindEmpty}, "WARNING: No readable text found in the PDF."},
		{Result{Kind: KindNotFound, Path: path}, "ERROR: File not found at path: " + path},
		{Result{Kind: KindFailed, Detail: "bad xref"}, "ERROR: Failed to read PDF. Details: bad xref"},
	}
	for _, tt := range tests {
		t.Run(tt.res.Kind.String(), func(t *testing.T) {
			if got := tt.res.Render(); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a\n\n\nb", "a\nb"},
		{"a\r\n\r\nb", "a\nb"},
		{"a\nb", "a\nb"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizePage(tt.in); got != tt.want {
			t.Errorf("normalizePage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files regardless of permissions")
	}
	data, err := os.ReadFile("testdata/revenue.pdf")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "locked.pdf")
	if err := os.WriteFile(path, data, 0o000); err != nil {
		t.Fatal(err)
	}

	res := NewExtractor(0).Extract(context.Background(), path)
	if res.Kind != KindNotFound {
		t.Fatalf("Kind = %v, want %v (detail %q)", res.Kind, KindNotFound, res.Detail)
	}
	if !strings.HasPrefix(res.Render(), "ERROR: File not found at path: ") {
		t.Errorf("Render() = %q", res.Render())
	}
}

func TestCheckReadable(t *testing.T) {
	if err := checkReadable("testdata/revenue.pdf"); err != nil {
		t.Errorf("checkReadable(revenue.pdf) = %v", err)
	}
	if err := checkReadable("testdata"); err == nil {
		t.Error("checkReadable(dir) should fail")
	}
	if err := checkReadable("testdata/nope.pdf"); err == nil {
		t.Error("checkReadable(missing) should fail")
	}
}
