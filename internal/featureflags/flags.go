package featureflags

import (
	"os"
	"strings"
)

// Enabled reports whether a flag is switched on via environment
// variable FLAG_<NAME>=1/true/yes/on (case-insensitive). Unknown flags
// are off.
func Enabled(name string) bool {
	value := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
