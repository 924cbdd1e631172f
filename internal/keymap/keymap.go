// Package keymap translates Windows virtual-key codes into the key space the
// transformation engine expects. The engine was written against mac-style
// keycodes, so the Windows side carries a static translation table.
package keymap

// Windows virtual-key codes referenced by the filter and translation table.
const (
	VKBack     = 0x08
	VKTab      = 0x09
	VKReturn   = 0x0D
	VKShift    = 0x10
	VKControl  = 0x11
	VKMenu     = 0x12
	VKPause    = 0x13
	VKCapital  = 0x14
	VKEscape   = 0x1B
	VKSpace    = 0x20
	VKSnapshot = 0x2C
	VKLeft     = 0x25
	VKUp       = 0x26
	VKRight    = 0x27
	VKDown     = 0x28
	VKLWin     = 0x5B
	VKRWin     = 0x5C
	VKF1       = 0x70
	VKF24      = 0x87
	VKLShift   = 0xA0
	VKRShift   = 0xA1
	VKLControl = 0xA2
	VKRControl = 0xA3
	VKLMenu    = 0xA4
	VKRMenu    = 0xA5
	VKNumLock  = 0x90
	VKScroll   = 0x91

	VKOEM1      = 0xBA // ;
	VKOEMPlus   = 0xBB // =
	VKOEMComma  = 0xBC // ,
	VKOEMMinus  = 0xBD // -
	VKOEMPeriod = 0xBE // .
	VKOEM2      = 0xBF // /
	VKOEM3      = 0xC0 // `
	VKOEM4      = 0xDB // [
	VKOEM5      = 0xDC // \
	VKOEM6      = 0xDD // ]
	VKOEM7      = 0xDE // '
)

// Invalid is returned for virtual keys the engine has no code for; the
// worker skips such events.
const Invalid uint16 = 0xFF

var vkToEngine = map[uint16]uint16{
	// Letters (QWERTY)
	'A': 0x00, 'S': 0x01, 'D': 0x02, 'F': 0x03, 'H': 0x04, 'G': 0x05,
	'Z': 0x06, 'X': 0x07, 'C': 0x08, 'V': 0x09, 'B': 0x0B, 'Q': 0x0C,
	'W': 0x0D, 'E': 0x0E, 'R': 0x0F, 'Y': 0x10, 'T': 0x11, 'O': 0x1F,
	'U': 0x20, 'I': 0x22, 'P': 0x23, 'L': 0x25, 'J': 0x26, 'K': 0x28,
	'N': 0x2D, 'M': 0x2E,

	// Digit row
	'1': 0x12, '2': 0x13, '3': 0x14, '4': 0x15, '5': 0x17,
	'6': 0x16, '7': 0x1A, '8': 0x1C, '9': 0x19, '0': 0x1D,

	// Editing and whitespace
	VKSpace:  0x31,
	VKBack:   0x33,
	VKTab:    0x30,
	VKReturn: 0x24,
	VKEscape: 0x35,

	// Arrows
	VKLeft:  0x7B,
	VKRight: 0x7C,
	VKDown:  0x7D,
	VKUp:    0x7E,

	// Punctuation
	VKOEMPeriod: 0x2F,
	VKOEMComma:  0x2B,
	VKOEM2:      0x2C,
	VKOEM1:      0x29,
	VKOEM7:      0x27,
	VKOEM4:      0x21,
	VKOEM6:      0x1E,
	VKOEM5:      0x2A,
	VKOEMMinus:  0x1B,
	VKOEMPlus:   0x18,
	VKOEM3:      0x32,
}

// ToEngineCode maps a Windows virtual key to the engine keycode, or Invalid
// when the engine does not handle the key.
func ToEngineCode(vk uint16) uint16 {
	if code, ok := vkToEngine[vk]; ok {
		return code
	}
	return Invalid
}

// Valid reports whether code is a translatable engine keycode.
func Valid(code uint16) bool {
	return code != Invalid
}

// ShouldIgnore reports whether the hook should drop the key without queueing:
// modifiers, Win keys, function keys, lock keys and system keys never reach
// the engine.
func ShouldIgnore(vk uint16) bool {
	switch vk {
	case VKShift, VKControl, VKMenu,
		VKLShift, VKRShift,
		VKLControl, VKRControl,
		VKLMenu, VKRMenu,
		VKLWin, VKRWin,
		VKCapital, VKNumLock, VKScroll,
		VKPause, VKSnapshot:
		return true
	}
	return vk >= VKF1 && vk <= VKF24
}
