package concat

import (
	"fmt"

	"github.com/hoistjs/hoist/compiler/jsast"
)

// InvariantError reports input the concatenated bundle can never contain when
// it was assembled correctly: a malformed require shim call, a specifier the
// module graph can't resolve, or a reference outside of any module wrapper.
type InvariantError struct {
	Pos jsast.Pos
	Msg string
}

func (e *InvariantError) Error() string {
	if !e.Pos.IsValid() {
		return "invariant: " + e.Msg
	}
	return fmt.Sprintf("%s: invariant: %s", e.Pos, e.Msg)
}

// bailout carries an error from deep inside the rewrite back to Rewrite.
type bailout struct{ err error }

func fail(pos jsast.Pos, format string, args ...any) {
	panic(bailout{&InvariantError{Pos: pos, Msg: fmt.Sprintf(format, args...)}})
}
