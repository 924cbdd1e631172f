//go:build windows

package inject

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

const inputKeyboard = 1

// keybdInput mirrors KEYBDINPUT.
type keybdInput struct {
	vk        uint16
	scan      uint16
	flags     uint32
	time      uint32
	extraInfo uintptr
}

// input mirrors the 64-bit INPUT struct: 4-byte type, 4 bytes padding so the
// union is 8-aligned, the 24-byte KEYBDINPUT, then tail padding up to the
// 40-byte union size (MOUSEINPUT is the largest member).
type input struct {
	inputType uint32
	_         [4]byte
	ki        keybdInput
	_         [8]byte
}

var _ [40 - unsafe.Sizeof(input{})]byte
var _ [unsafe.Sizeof(input{}) - 40]byte

// WindowsSender emits synthetic events through SendInput.
type WindowsSender struct{}

// NewSender returns the platform sender.
func NewSender() Sender {
	return &WindowsSender{}
}

// Send converts the events to INPUT records tagged with the injection
// marker and submits them in one SendInput call.
func (s *WindowsSender) Send(events []KeyInput) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	inputs := make([]input, len(events))
	for i, ev := range events {
		inputs[i] = input{
			inputType: inputKeyboard,
			ki: keybdInput{
				vk:        ev.VK,
				scan:      ev.Scan,
				flags:     ev.Flags,
				extraInfo: Marker,
			},
		}
	}

	ret, _, err := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(input{}),
	)
	sent := int(ret)
	if sent == 0 {
		return 0, fmt.Errorf("SendInput: %w", err)
	}
	return sent, nil
}
