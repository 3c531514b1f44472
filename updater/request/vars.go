package request

import (
	"fmt"
	"os"
	"strings"

	"github.com/valyala/fasttemplate"
)

const (
	startTag = "{{"
	endTag   = "}}"
)

// LoadVars reads workspace status files and merges
// them into a single map, later files winning. Each
// line is "KEY VALUE" with the first space as
// delimiter. Lines without a space are skipped.
func LoadVars(files []string) (map[string]any, error) {
	const errCtx = "loading vars"

	vars := make(map[string]any)

	for _, vf := range files {
		content, err := os.ReadFile(vf) //nolint:gosec // paths from CLI flags
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		for _, line := range strings.Split(string(content), "\n") {
			key, val, ok := strings.Cut(
				strings.TrimRight(line, "\r"), " ",
			)
			if ok && key != "" {
				vars[key] = val
			}
		}
	}

	return vars, nil
}

// Expand substitutes {{NAME}} placeholders in format.
// Unknown names are kept as they are.
func Expand(format string, vars map[string]any) string {
	if len(vars) == 0 || !strings.Contains(format, startTag) {
		return format
	}

	return fasttemplate.ExecuteStringStd(
		format, startTag, endTag, vars,
	)
}
