// Package promptfmt renders structured prompt content as markdown text.
package promptfmt

import (
	"strings"

	"github.com/user/promptengine/internal/types"
)

// Flatten renders c as labelled markdown sections separated by blank lines.
// Empty fields produce no section; the task section is always present.
func Flatten(c types.StructuredPromptContent) string {
	var sections []string

	if c.Persona != "" {
		sections = append(sections, "**Persona:**\n"+c.Persona)
	}
	sections = append(sections, "**Task:**\n"+c.Task)
	if len(c.Constraints) > 0 {
		sections = append(sections, "**Constraints:**\n"+bullets(c.Constraints))
	}
	if c.Format != "" {
		sections = append(sections, "**Output Format:**\n"+c.Format)
	}
	if len(c.Examples) > 0 {
		sections = append(sections, "**Examples:**\n"+bullets(c.Examples))
	}

	return strings.TrimSpace(strings.Join(sections, "\n\n"))
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}
