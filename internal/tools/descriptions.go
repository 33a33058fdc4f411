package tools

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed descriptions/*.md
var descriptionFS embed.FS

// Description returns the markdown description of the named tool.
func Description(name string) (string, error) {
	b, err := descriptionFS.ReadFile("descriptions/" + name + ".md")
	if err != nil {
		return "", fmt.Errorf("no description for tool %s: %w", name, err)
	}
	return strings.TrimSpace(string(b)), nil
}
