package content

import (
	"embed"
	"fmt"
)

//go:embed seed/*.md
var seedFiles embed.FS

// SeedOrder is the default tutorial in reading order. It also fixes the
// navigation order of List.
var SeedOrder = []string{
	"index",
	"step-1",
	"step-2",
	"step-3",
	"step-4",
	"step-5",
	"step-6",
	"penutup",
}

// SeedPage returns the built-in Markdown for a default page.
func SeedPage(key string) ([]byte, error) {
	data, err := seedFiles.ReadFile("seed/" + key + ".md")
	if err != nil {
		return nil, fmt.Errorf("content: no seed page %q: %w", key, err)
	}
	return data, nil
}
