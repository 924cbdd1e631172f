package engine

import "unsafe"

// nativeResult is the C-compatible result struct returned by ime_key_ext.
// The layout is a bit-exact contract with the engine's published ABI:
//
//	offset 0   action    u8
//	offset 1   backspace u8
//	offset 4   chars     [16]u32
//	offset 72  count     i64
//	total      80 bytes
type nativeResult struct {
	action    uint8
	backspace uint8
	_         [2]byte
	chars     [maxResultChars]uint32
	count     int64
}

// maxResultChars is the fixed capacity of the native chars array.
const maxResultChars = 16

const (
	nativeResultSize      = 80
	nativeActionOffset    = 0
	nativeBackspaceOffset = 1
	nativeCharsOffset     = 4
	nativeCountOffset     = 72
)

// ABI pinning: any drift between nativeResult and the published layout makes
// one of these array lengths negative and the package fails to compile.
var (
	_ [nativeResultSize - unsafe.Sizeof(nativeResult{})]byte
	_ [unsafe.Sizeof(nativeResult{}) - nativeResultSize]byte
	_ [nativeActionOffset - unsafe.Offsetof(nativeResult{}.action)]byte
	_ [nativeBackspaceOffset - unsafe.Offsetof(nativeResult{}.backspace)]byte
	_ [nativeCharsOffset - unsafe.Offsetof(nativeResult{}.chars)]byte
	_ [unsafe.Offsetof(nativeResult{}.chars) - nativeCharsOffset]byte
	_ [nativeCountOffset - unsafe.Offsetof(nativeResult{}.count)]byte
	_ [unsafe.Offsetof(nativeResult{}.count) - nativeCountOffset]byte
)

// decodeResult copies a native result into Go-owned memory. The caller frees
// the native struct afterwards; the returned Result holds no engine memory.
func decodeResult(n *nativeResult) Result {
	r := Result{
		Action:    Action(n.action),
		Backspace: n.backspace,
	}

	count := n.count
	if count > maxResultChars {
		count = maxResultChars
	}
	if count <= 0 {
		return r
	}

	r.Chars = make([]rune, 0, count)
	for i := int64(0); i < count; i++ {
		cp := n.chars[i]
		if cp == 0 {
			break
		}
		r.Chars = append(r.Chars, rune(cp))
	}
	return r
}
