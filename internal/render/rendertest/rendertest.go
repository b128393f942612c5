// Package rendertest exposes the Markdown fixtures shared by every caller of
// the renderer. Each fixture is a pair of files, name.md and name.html.
package rendertest

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed fixtures/*.md fixtures/*.html
var files embed.FS

// Dir is the fixture directory relative to this package.
const Dir = "fixtures"

// Fixture is a Markdown input and the HTML the renderer must produce.
type Fixture struct {
	Name     string
	Markdown string
	HTML     string
}

// Fixtures returns all fixtures sorted by name.
func Fixtures() []Fixture {
	mds, err := fs.Glob(files, path.Join(Dir, "*.md"))
	if err != nil {
		panic(err)
	}
	sort.Strings(mds)
	out := make([]Fixture, 0, len(mds))
	for _, md := range mds {
		name := strings.TrimSuffix(path.Base(md), ".md")
		src, err := files.ReadFile(md)
		if err != nil {
			panic(err)
		}
		want, err := files.ReadFile(path.Join(Dir, name+".html"))
		if err != nil {
			panic(err)
		}
		out = append(out, Fixture{Name: name, Markdown: string(src), HTML: string(want)})
	}
	return out
}
