// Package inject synthesizes replacement keystrokes into the focused
// application: backspaces (or Shift+Left selection) to remove composed text,
// followed by Unicode insertions. Every synthetic event carries the process
// marker so the keyboard hook recognizes its own output and does not feed it
// back into the pipeline.
package inject

import "vikeyd/internal/keymap"

// Marker tags every synthetic event in its ExtraInfo field. The OS passes it
// through untouched; only this process interprets it. "VKEY" in ASCII.
const Marker uintptr = 0x564B4559

// Event flags, mirroring KEYBDINPUT dwFlags.
const (
	// FlagKeyUp marks a key-release event.
	FlagKeyUp uint32 = 0x0002
	// FlagUnicode marks a raw UTF-16 code unit event; VK is zero and Scan
	// carries the code unit.
	FlagUnicode uint32 = 0x0004
)

// KeyInput is one synthetic key event in platform-neutral form. The Windows
// sender converts it to a KEYBDINPUT; tests inspect it directly.
type KeyInput struct {
	VK    uint16
	Scan  uint16
	Flags uint32
}

// Up reports whether this is a key-release event.
func (k KeyInput) Up() bool { return k.Flags&FlagKeyUp != 0 }

// Unicode reports whether this is a raw UTF-16 code unit event.
func (k KeyInput) Unicode() bool { return k.Flags&FlagUnicode != 0 }

func keyPair(vk uint16) []KeyInput {
	return []KeyInput{
		{VK: vk},
		{VK: vk, Flags: FlagKeyUp},
	}
}

func unicodePair(unit uint16) []KeyInput {
	return []KeyInput{
		{Scan: unit, Flags: FlagUnicode},
		{Scan: unit, Flags: FlagUnicode | FlagKeyUp},
	}
}

// BackspaceEvents builds count backspace down/up pairs.
func BackspaceEvents(count int) [][]KeyInput {
	pairs := make([][]KeyInput, 0, count)
	for i := 0; i < count; i++ {
		pairs = append(pairs, keyPair(keymap.VKBack))
	}
	return pairs
}

// SelectionEvents builds the Shift+Left sequence that selects count
// preceding characters instead of deleting them, for fields where backspace
// navigates away. Shift is held across the whole run: one shift-down unit,
// count Left down/up units, one shift-up unit.
func SelectionEvents(count int) [][]KeyInput {
	units := make([][]KeyInput, 0, count+2)
	units = append(units, []KeyInput{{VK: keymap.VKShift}})
	for i := 0; i < count; i++ {
		units = append(units, keyPair(keymap.VKLeft))
	}
	units = append(units, []KeyInput{{VK: keymap.VKShift, Flags: FlagKeyUp}})
	return units
}

// CodePointEvents builds the synthetic events for one Unicode code point:
// a single down/up pair for BMP code points, and the UTF-16 surrogate pair
// (four events) above U+FFFF.
func CodePointEvents(cp rune) []KeyInput {
	if cp <= 0xFFFF {
		return unicodePair(uint16(cp))
	}

	v := uint32(cp) - 0x10000
	high := uint16(0xD800 + (v >> 10 & 0x3FF))
	low := uint16(0xDC00 + (v & 0x3FF))

	events := make([]KeyInput, 0, 4)
	events = append(events, unicodePair(high)...)
	events = append(events, unicodePair(low)...)
	return events
}
