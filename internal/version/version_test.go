package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestColored(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	if got := Colored(); got != Version {
		t.Errorf("Got: %q. Want: %q without colors.", got, Version)
	}

	savedVersion := Version
	Version = "dev"
	defer func() { Version = savedVersion }()
	if got := Colored(); got != "dev" {
		t.Errorf("Got: %q. Want: non-semantic version returned as is.", got)
	}
}
