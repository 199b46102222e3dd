package persist

import (
	"regexp"
	"strings"
	"testing"
	"unicode"
)

func TestKey_Deterministic(t *testing.T) {
	k1 := Key("5f0c2d", KeyDrawingState)
	k2 := Key("5f0c2d", KeyDrawingState)
	if k1 != k2 {
		t.Fatalf("determinism failed:\n k1=%s\n k2=%s", k1, k2)
	}
	if !strings.HasPrefix(k1, "aoi:5f0c2d:drawingState:s=") {
		t.Fatalf("unexpected key shape: %s", k1)
	}
}

func TestKey_ScopesThatSanitizeAlikeStayDistinct(t *testing.T) {
	k1 := Key("a:b", KeyComment)
	k2 := Key("a/b", KeyComment)
	if k1 == k2 {
		t.Fatalf("distinct scopes collided: %s", k1)
	}
}

func TestKey_UnicodeAndSeparatorSafety(t *testing.T) {
	k := Key(" Göteborg:雪 session ", KeyCalculation)
	for _, r := range k {
		if r > unicode.MaxASCII {
			t.Fatalf("non-ASCII rune leaked into key: %q in %s", r, k)
		}
	}
	if n := strings.Count(k, ":"); n != 3 {
		t.Fatalf("scope must not add separators, got %d in %s", n, k)
	}
	if !regexp.MustCompile(`:s=[0-9a-f]{16}$`).MatchString(k) {
		t.Fatalf("missing hash suffix: %s", k)
	}
}

func TestKey_LongScopeIsCapped(t *testing.T) {
	k := Key(strings.Repeat("x", 500), KeyComment)
	if len(k) > 120 {
		t.Fatalf("key too long (%d): %s", len(k), k)
	}
}
