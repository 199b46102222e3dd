package persist

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Storage names. Each is loadable and clearable on its own.
const (
	KeyDrawingState    = "drawingState"
	KeySelectedService = "selectedService"
	KeyParameterValues = "parameterValues"
	KeyUploadedFiles   = "uploadedFiles"
	KeyComment         = "comment"
	KeyCalculation     = "calculation"
	KeyAccordionState  = "accordionState"
)

var allKeys = []string{
	KeyDrawingState,
	KeySelectedService,
	KeyParameterValues,
	KeyUploadedFiles,
	KeyComment,
	KeyCalculation,
	KeyAccordionState,
}

const keyPrefix = "aoi"

// Key scopes a storage name to one client. The readable scope part is
// sanitized and capped; the hash suffix keeps distinct scopes apart.
func Key(scope, name string) string {
	raw := strings.TrimSpace(scope)
	safe := sanitizeScope(raw)

	const maxScopeLen = 64
	if len(safe) > maxScopeLen {
		safe = safe[:maxScopeLen]
	}

	return fmt.Sprintf("%s:%s:%s:s=%016x", keyPrefix, safe, name, xxhash.Sum64String(raw))
}

func sanitizeScope(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-':
			out = r
		default:
			// ':' is reserved as the key separator
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
