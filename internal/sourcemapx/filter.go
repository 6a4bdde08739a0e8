package sourcemapx

import (
	"bytes"
	"fmt"
	"io"
)

// MappingCallback receives one mapping per hint found in the stream. The
// generated line is 1-based, the column 0-based, both measured in bytes of
// the filtered output. originalPos is the zero Pos for hints that mark code
// without an original position.
type MappingCallback func(generatedLine, generatedColumn int, originalPos Pos, originalName string)

// Filter implements io.Writer which extracts source map hints from the written
// stream and passes them to the MappingCallback if it's not nil. Encoded hints
// are always filtered out of the output stream.
//
// Hints must be written in a single Write call, they are not reassembled
// across calls.
type Filter struct {
	Writer          io.Writer
	MappingCallback MappingCallback

	line   int
	column int
}

func (f *Filter) Write(p []byte) (n int, err error) {
	var n2 int
	for {
		i := FindHint(p)
		w := p
		if i != -1 {
			w = p[:i]
		}

		n2, err = f.Writer.Write(w)
		n += n2
		f.advance(w)

		if err != nil || i == -1 {
			return
		}
		h, length := ReadHint(p[i:])
		if f.MappingCallback != nil {
			value, err := h.Unpack()
			if err != nil {
				panic(fmt.Errorf("failed to unpack source map hint: %w", err))
			}
			switch value := value.(type) {
			case Pos:
				f.MappingCallback(f.line+1, f.column, value, "")
			case Identifier:
				f.MappingCallback(f.line+1, f.column, value.OriginalPos, value.OriginalName)
			default:
				panic(fmt.Errorf("unexpected source map hint type: %T", value))
			}
		}
		p = p[i+length:]
		n += length
	}
}

// advance moves the output position past w.
func (f *Filter) advance(w []byte) {
	for {
		i := bytes.IndexByte(w, '\n')
		if i == -1 {
			f.column += len(w)
			return
		}
		f.line++
		f.column = 0
		w = w[i+1:]
	}
}
