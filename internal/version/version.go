// Package version holds the version of the hoist tool.
package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Version is the semantic version of hoist. It is part of every build cache
// key, so artifacts cached by another version are never reused.
// It can be overridden at build time via -ldflags.
var Version = "0.1.0"

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Colored returns Version with its components highlighted for a terminal.
// Colors are dropped when color.NoColor is set.
func Colored() string {
	parts := strings.SplitN(Version, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	return fmt.Sprintf("%s.%s.%s", majorColor.Sprint(parts[0]), minorColor.Sprint(parts[1]), patchColor.Sprint(parts[2]))
}
