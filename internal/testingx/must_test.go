package testingx

import (
	"errors"
	"testing"
)

// recorder captures Fatalf instead of stopping the test.
type recorder struct {
	testing.TB
	failed bool
}

func (r *recorder) Helper() {}

func (r *recorder) Fatalf(format string, args ...any) { r.failed = true }

func TestMust(t *testing.T) {
	if got := Must[int](t)(42, nil); got != 42 {
		t.Errorf("Got: %d. Want: 42.", got)
	}

	r := &recorder{TB: t}
	Must[int](r)(0, errors.New("boom"))
	if !r.failed {
		t.Errorf("Got: no failure for a non-nil error. Want: Fatalf called.")
	}
}
