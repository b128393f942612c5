// Package parser extracts frontmatter, a title and a summary from page Markdown.
package parser

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const summaryMaxRunes = 160

var (
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	linkRe    = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	emphRe    = regexp.MustCompile("(\\*\\*|__|\\*|_|`|~~)")
)

// Result holds the output of parsing a page.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Title       string
	Summary     string
}

// Parse extracts frontmatter, body, title and summary from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
		Summary:     deriveSummary(fm, body),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
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
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: the whole file is body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// deriveTitle returns the frontmatter "title" if present, otherwise the
// text of the first heading of any level, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if s := stringField(fm, "title"); s != "" {
		return s
	}
	inCode := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}
		if m := headingRe.FindStringSubmatch(trimmed); m != nil {
			return plain(m[2])
		}
	}
	return ""
}

// deriveSummary returns the frontmatter "description" if present, otherwise
// the first prose paragraph stripped of inline markup and truncated.
func deriveSummary(fm map[string]interface{}, body string) string {
	if s := stringField(fm, "description"); s != "" {
		return truncate(s)
	}
	var para []string
	inCode := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}
		if trimmed == "" {
			if len(para) > 0 {
				break
			}
			continue
		}
		if isBlockMarker(trimmed) {
			if len(para) > 0 {
				break
			}
			continue
		}
		para = append(para, trimmed)
	}
	return truncate(plain(strings.Join(para, " ")))
}

func isBlockMarker(line string) bool {
	switch {
	case strings.HasPrefix(line, "#"),
		strings.HasPrefix(line, ">"),
		strings.HasPrefix(line, "- "),
		strings.HasPrefix(line, "* "),
		strings.HasPrefix(line, "|"),
		strings.HasPrefix(line, "<"),
		strings.HasPrefix(line, "---"):
		return true
	}
	if i := strings.Index(line, ". "); i > 0 {
		for _, r := range line[:i] {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	}
	return false
}

// plain strips links and emphasis markers, keeping the visible text.
func plain(s string) string {
	s = linkRe.ReplaceAllString(s, "$1")
	s = emphRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= summaryMaxRunes {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:summaryMaxRunes])) + "…"
}

func stringField(fm map[string]interface{}, key string) string {
	if fm == nil {
		return ""
	}
	if s, ok := fm[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
