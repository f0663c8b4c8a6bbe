package errors

import "sort"

// Template defines a registered error type.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// Config (E100-E119)
	"E100": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "obsedit looks for obsedit.json in the working directory unless --config is given.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "obsedit.json could not be read or is not valid JSON.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
	},

	// Replay scripts (E200-E219)
	"E200": {
		Category: CategoryScript,
		Message:  "Cannot read replay script",
	},
	"E201": {
		Category: CategoryScript,
		Message:  "Invalid replay step",
		Detail:   "A step must name exactly one action: setPosition, setSelections, trigger, edits, focus or blur.",
	},
	"E202": {
		Category: CategoryScript,
		Message:  "Replay step failed",
		Detail:   "The editor rejected the step. Earlier steps were applied.",
	},
	"E203": {
		Category: CategoryScript,
		Message:  "Replay output mismatch",
		Detail:   "The entries logged by a step differ from its expect list.",
	},

	// Snapshots (E300-E319)
	"E300": {
		Category: CategorySnapshot,
		Message:  "Invalid snapshot target",
		Detail:   "Snapshot targets are file:// paths or s3://bucket/key URLs.",
	},
	"E301": {
		Category: CategorySnapshot,
		Message:  "Snapshot write failed",
	},

	// Server (E400-E419)
	"E400": {
		Category: CategoryServer,
		Message:  "Invalid request body",
	},
	"E401": {
		Category: CategoryServer,
		Message:  "Editor operation failed",
	},

	// CLI (E500-E519)
	"E500": {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
	},
}

// Codes returns every registered code in ascending order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
