// Package parser reads and writes chapter files: YAML frontmatter followed
// by the base64 ciphertext body.
package parser

import (
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/novelcipher/internal/apperr"
)

var fileNumberRe = regexp.MustCompile(`(\d+)\.md$`)

// Result holds the output of parsing a chapter file.
type Result struct {
	Frontmatter map[string]any
	Number      int
	Title       string
	Tags        []string
	// Ciphertext is the body with all whitespace removed.
	Ciphertext string
}

// Header is the frontmatter written by Compose.
type Header struct {
	Chapter int      `yaml:"chapter"`
	Title   string   `yaml:"title,omitempty"`
	Tags    []string `yaml:"tags,omitempty"`
}

// Parse extracts frontmatter and ciphertext from a chapter file. The
// chapter number comes from the "chapter" key, or from the trailing digits
// of filePath when the key is absent.
func Parse(filePath string, data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	number, ok := numberFromFrontmatter(fm)
	if !ok {
		number, ok = NumberFromPath(filePath)
	}
	if !ok || number < 1 {
		return nil, fmt.Errorf("%w: %s has no chapter number", apperr.ErrInvalidChapter, filePath)
	}

	ct := strings.Join(strings.Fields(body), "")
	if ct == "" {
		return nil, fmt.Errorf("%w: %s has an empty body", apperr.ErrInvalidChapter, filePath)
	}

	return &Result{
		Frontmatter: fm,
		Number:      number,
		Title:       deriveTitle(fm, number),
		Tags:        extractTags(fm),
		Ciphertext:  ct,
	}, nil
}

// Compose renders a chapter file. The ciphertext is wrapped at 76 columns.
func Compose(h Header, ciphertext string) ([]byte, error) {
	fm, err := yaml.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("parser: marshal frontmatter: %w", err)
	}
	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n")
	for len(ciphertext) > 76 {
		b.WriteString(ciphertext[:76])
		b.WriteByte('\n')
		ciphertext = ciphertext[76:]
	}
	b.WriteString(ciphertext)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// FileName returns the canonical vault path for chapter number.
func FileName(number int) string {
	return path.Join("chapters", fmt.Sprintf("chapter-%03d.md", number))
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	body := string(rest[idx+1+len(delim):])

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, "", fmt.Errorf("%w: frontmatter: %v", apperr.ErrInvalidChapter, err)
	}
	return fm, body, nil
}

func numberFromFrontmatter(fm map[string]any) (int, bool) {
	switch v := fm["chapter"].(type) {
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

// NumberFromPath extracts the trailing chapter number of a file name.
func NumberFromPath(filePath string) (int, bool) {
	m := fileNumberRe.FindStringSubmatch(filePath)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

func extractTags(fm map[string]any) []string {
	raw, ok := fm["tags"].([]any)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise
// "Chapter N".
func deriveTitle(fm map[string]any, number int) string {
	if s, ok := fm["title"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return fmt.Sprintf("Chapter %d", number)
}
