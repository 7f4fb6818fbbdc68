package ai

import "strings"

// Approximate context windows, in tokens, of common chat models.
var contextWindows = map[string]int{
	"gpt-3.5-turbo": 16385,
	"gpt-4":         8192,
	"gpt-4-turbo":   128000,
	"gpt-4o":        128000,
	"gpt-4o-mini":   128000,
	"gpt-4.1":       1047576,
	"gpt-4.1-mini":  1047576,
}

const fallbackContextWindow = 8192

// ContextWindow returns the model's context size. Dated snapshots
// ("gpt-4o-2024-08-06") resolve through their longest known prefix.
func ContextWindow(model string) int {
	if n, ok := contextWindows[model]; ok {
		return n
	}
	best, n := "", fallbackContextWindow
	for name, size := range contextWindows {
		if strings.HasPrefix(model, name+"-") && len(name) > len(best) {
			best, n = name, size
		}
	}
	return n
}
