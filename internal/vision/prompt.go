package vision

import (
	_ "embed"
	"strings"
)

var (
	//go:embed prompts/analysis_zh.txt
	promptKeyword string
	//go:embed prompts/analysis_structured.txt
	promptStructured string
)

// PromptFor returns the fixed analysis instruction matching a parser
// strategy name. Unknown names get the free-text prompt.
func PromptFor(strategy string) string {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "structured":
		return strings.TrimSpace(promptStructured)
	default:
		return strings.TrimSpace(promptKeyword)
	}
}
