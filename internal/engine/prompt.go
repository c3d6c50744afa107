package engine

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/user/promptengine/internal/types"
)

// SystemInstruction tells the generation model how to structure its reply.
const SystemInstruction = `You are a world-class AI prompt engineer. Your task is to take a user's simple idea and transform it into a highly effective, detailed, and optimized prompt for a large language model.

Guidelines:
1. **Clarity and Specificity:** The prompt must be unambiguous and provide specific instructions.
2. **Context:** Consider any provided context from files.
3. **Persona:** Define a persona for the AI.
4. **Format:** Specify the desired output format.
5. **Constraints:** Add constraints or restrictions.
6. **Examples:** Provide examples if applicable.

Return a JSON object with this structure:
{
  "persona": "The persona the AI should adopt",
  "task": "The primary task for the AI to perform",
  "constraints": ["List", "of", "rules", "or", "restrictions"],
  "format": "The desired output format",
  "examples": ["Example", "of", "desired", "input/output"]
}`

// ideaTemplate renders the user message. Only file names are sent.
var ideaTemplate = template.Must(template.New("idea").Parse(
	`User idea: "{{.Idea}}"
{{- if .Files}}

Context files:{{range .Files}} - {{.Name}}{{end}}
{{- end}}`))

type ideaData struct {
	Idea  string
	Files []types.ContextFile
}

func renderIdea(idea string, files []types.ContextFile) (string, error) {
	var buf bytes.Buffer
	if err := ideaTemplate.Execute(&buf, ideaData{Idea: idea, Files: files}); err != nil {
		return "", fmt.Errorf("render idea: %w", err)
	}
	return buf.String(), nil
}

// demoContent is returned when no model is configured.
func demoContent(idea string) types.StructuredPromptContent {
	return types.StructuredPromptContent{
		Persona:     "You are an expert assistant specializing in software development",
		Task:        "Help with: " + idea,
		Constraints: []string{"Be clear and concise", "Provide practical examples"},
		Format:      "Provide a step-by-step solution with code examples",
		Examples:    []string{"Include error handling", "Add comments to code"},
	}
}

// proseContent wraps a reply that carried no JSON object.
func proseContent(text string) types.StructuredPromptContent {
	task := "Complete the given task"
	if text != "" {
		task = truncate(text, 200)
	}
	return types.StructuredPromptContent{
		Persona:     "You are a helpful AI assistant",
		Task:        task,
		Constraints: []string{"Be helpful and accurate"},
		Format:      "Provide a clear, well-structured response",
		Examples:    []string{"Include relevant examples"},
	}
}

func demoTestResponse(prompt string) string {
	return fmt.Sprintf("This is a demo response for the prompt: %s... In a real implementation, "+
		"this would be processed by the AI model to provide a detailed response based on the instructions given.",
		truncate(prompt, 100))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
