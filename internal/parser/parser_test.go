package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/novelcipher/internal/apperr"
)

func TestParse_Frontmatter(t *testing.T) {
	input := "---\nchapter: 3\ntitle: The Lighthouse\ntags:\n  - mystery\n  - coast\n  - mystery\n---\nU2FsdGVkX1\n+abc==\n"
	res, err := Parse("chapters/chapter-003.md", []byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Number != 3 {
		t.Errorf("number = %d", res.Number)
	}
	if res.Title != "The Lighthouse" {
		t.Errorf("title = %q", res.Title)
	}
	if len(res.Tags) != 2 || res.Tags[0] != "mystery" || res.Tags[1] != "coast" {
		t.Errorf("tags = %v", res.Tags)
	}
	if res.Ciphertext != "U2FsdGVkX1+abc==" {
		t.Errorf("ciphertext = %q", res.Ciphertext)
	}
}

func TestParse_NumberFromPath(t *testing.T) {
	res, err := Parse("chapters/chapter-012.md", []byte("YWJj\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Number != 12 {
		t.Errorf("number = %d, want 12", res.Number)
	}
	if res.Title != "Chapter 12" {
		t.Errorf("title = %q", res.Title)
	}
}

func TestParse_StringNumber(t *testing.T) {
	res, err := Parse("x.md", []byte("---\nchapter: \"7\"\n---\nYWJj"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Number != 7 {
		t.Errorf("number = %d", res.Number)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]struct {
		path string
		data string
	}{
		"no number":       {"intro.md", "---\ntitle: Intro\n---\nYWJj"},
		"zero":            {"chapter-000.md", "YWJj"},
		"empty body":      {"chapter-001.md", "---\nchapter: 1\n---\n\n  \n"},
		"bad frontmatter": {"chapter-001.md", "---\nchapter: [1\n---\nYWJj"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(tc.path, []byte(tc.data))
			if !errors.Is(err, apperr.ErrInvalidChapter) {
				t.Errorf("err = %v, want ErrInvalidChapter", err)
			}
		})
	}
}

func TestCompose_RoundTrip(t *testing.T) {
	ct := strings.Repeat("QUJD", 50)
	data, err := Compose(Header{Chapter: 5, Title: "Storm", Tags: []string{"sea"}}, ct)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if len(line) > 76 {
			t.Errorf("line longer than 76 columns: %d", len(line))
		}
	}
	res, err := Parse(FileName(5), data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Number != 5 || res.Title != "Storm" || res.Ciphertext != ct {
		t.Errorf("round trip mismatch: %+v", res)
	}
	if len(res.Tags) != 1 || res.Tags[0] != "sea" {
		t.Errorf("tags = %v", res.Tags)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(7); got != "chapters/chapter-007.md" {
		t.Errorf("FileName = %q", got)
	}
	if got := FileName(1234); got != "chapters/chapter-1234.md" {
		t.Errorf("FileName = %q", got)
	}
}

func TestNumberFromPath(t *testing.T) {
	if n, ok := NumberFromPath("chapters/chapter-042.md"); !ok || n != 42 {
		t.Errorf("NumberFromPath = %d, %v", n, ok)
	}
	if _, ok := NumberFromPath("chapters/intro.md"); ok {
		t.Error("expected no number for intro.md")
	}
}
