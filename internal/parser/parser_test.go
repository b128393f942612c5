package parser

import (
	"strings"
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Persiapan\ndescription: Siapkan akun GitHub.\n---\n## Mulai\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Persiapan" {
		t.Errorf("title = %q, want %q", r.Title, "Persiapan")
	}
	if r.Summary != "Siapkan akun GitHub." {
		t.Errorf("summary = %q", r.Summary)
	}
	if r.Body != "## Mulai\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("## 👋 Tentang Tutorial Ini\n\nSelamat datang di tutorial **Link Bio**!\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "👋 Tentang Tutorial Ini" {
		t.Errorf("title = %q", r.Title)
	}
	if r.Summary != "Selamat datang di tutorial Link Bio!" {
		t.Errorf("summary = %q", r.Summary)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestDeriveTitle_FrontmatterOverHeading(t *testing.T) {
	fm := map[string]any{"title": "FM Title"}
	title := deriveTitle(fm, "# H1 Title\ntext")
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_SkipsCodeBlocks(t *testing.T) {
	body := "```bash\n# not a heading\n```\n### Real **Heading** ###\n"
	if title := deriveTitle(nil, body); title != "Real Heading" {
		t.Errorf("title = %q, want %q", title, "Real Heading")
	}
}

func TestDeriveSummary_SkipsBlocks(t *testing.T) {
	body := "## Heading\n\n> quote\n\n1. step\n2. step\n\nBuka [github.com](https://github.com) lalu\nklik `Sign up`.\n\nNext paragraph."
	got := deriveSummary(nil, body)
	if got != "Buka github.com lalu klik Sign up." {
		t.Errorf("summary = %q", got)
	}
}

func TestDeriveSummary_Truncates(t *testing.T) {
	body := strings.Repeat("kata ", 100)
	got := deriveSummary(nil, body)
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis, got %q", got)
	}
	if n := len([]rune(got)); n > summaryMaxRunes+1 {
		t.Errorf("summary has %d runes", n)
	}
}
