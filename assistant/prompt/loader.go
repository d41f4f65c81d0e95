package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/system.txt
var systemRaw string

// System returns the fixed system instruction seeded as the first message
// of every session. Safe to call concurrently; the embed is compile-time.
func System() string {
	return strings.TrimSpace(systemRaw)
}
