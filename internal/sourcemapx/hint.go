package sourcemapx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
)

// A magic byte in the generated code output that indicates a beginning of a
// source map hint. The character has been chosen because it should never show
// up in printed code unescaped, other than for source map hint purposes.
const HintMagic byte = '\b'

// Hint is a container for a sourcemap hint that can be embedded into the
// printed code stream. Payload size and semantics depend on the nature of the
// hint.
//
// Within the stream, the hint is encoded in the following binary format:
//   - magic: 0x08 - ASCII backspace, magic symbol indicating the beginning of the hint;
//   - size: 16 bit, big endian unsigned int - the size of the payload.
//   - payload: [size]byte - the payload of the hint.
type Hint struct {
	Payload []byte
}

// FindHint returns the lowest index in the byte slice where a source map Hint
// is embedded or -1 if it isn't found. Invariant: if FindHint(b) != -1 then
// b[FindHint(b)] == '\b'.
func FindHint(b []byte) int {
	return bytes.IndexByte(b, HintMagic)
}

// ReadHint reads the Hint from the beginning of the byte slice and returns
// the hint and the number of bytes in the slice it occupies. The caller is
// expected to find the location of the hint using FindHint prior to calling
// this function.
//
// Returned hint payload does not share backing array with b.
//
// Function panics if:
//   - b[0] != '\b'
//   - len(b) < size + 3
func ReadHint(b []byte) (h Hint, length int) {
	if len(b) < 3 {
		panic(fmt.Errorf("byte slice too short to contain hint header: len(b) = %d", len(b)))
	}
	if b[0] != HintMagic {
		panic(fmt.Errorf("byte slice doesn't start with magic 0x%x: b[0] = 0x%x", HintMagic, b[0]))
	}
	size := int(binary.BigEndian.Uint16(b[1:3]))
	if len(b) < size+3 {
		panic(fmt.Errorf("byte slice it too short to contain hint payload: len(b) = %d, expected hint size: %d", len(b), size+3))
	}

	h.Payload = make([]byte, size)
	copy(h.Payload, b[3:])
	return h, size + 3
}

// WriteTo the encoded hint into the output stream. Payloads longer than 0xFFFF
// bytes can't be encoded and result in an error.
func (h *Hint) WriteTo(w io.Writer) (int64, error) {
	size, err := safecast.Conv[uint16](len(h.Payload))
	if err != nil {
		return 0, fmt.Errorf("hint payload may not be longer than %d bytes, got %d: %w", 0xFFFF, len(h.Payload), err)
	}
	encoded := []byte{HintMagic}
	encoded = binary.BigEndian.AppendUint16(encoded, size)
	encoded = append(encoded, h.Payload...)

	n, err := w.Write(encoded)
	if err != nil {
		return int64(n), fmt.Errorf("failed to write hint: %w", err)
	}

	return int64(n), nil
}

// Payload type flags, stored in the first payload byte.
const (
	kindPos byte = iota + 1
	kindIdentifier
)

// Pack the given value into hint's payload.
//
// Supported types: Pos, Identifier.
//
// The first byte of the payload indicates the encoded type, the rest is the
// value in msgpack encoding.
func (h *Hint) Pack(value any) error {
	var kind byte
	switch value.(type) {
	case Pos:
		kind = kindPos
	case Identifier:
		kind = kindIdentifier
	default:
		return fmt.Errorf("unsupported hint payload type %T", value)
	}

	encoded, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode hint payload: %w", err)
	}
	h.Payload = append([]byte{kind}, encoded...)
	return nil
}

// Unpack and return hint's payload, previously packed by Pack().
func (h *Hint) Unpack() (any, error) {
	if len(h.Payload) < 1 {
		return nil, fmt.Errorf("payload is too short to contain type flag")
	}
	data := h.Payload[1:]
	switch h.Payload[0] {
	case kindPos:
		var p Pos
		if err := msgpack.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode hint payload as %T: %w", p, err)
		}
		return p, nil
	case kindIdentifier:
		var id Identifier
		if err := msgpack.Unmarshal(data, &id); err != nil {
			return nil, fmt.Errorf("failed to decode hint payload as %T: %w", id, err)
		}
		return id, nil
	default:
		return nil, fmt.Errorf("unsupported hint payload type flag: %d", h.Payload[0])
	}
}
