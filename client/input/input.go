package input

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// IsPositiveJustPressed returns a boolean value indicating whether the generic positive input is just pressed.
// This is used to handle both mouse, touch and keyboard inputs.
func IsPositiveJustPressed() bool {
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return true
	}
	touchIDs := inpututil.AppendJustPressedTouchIDs(nil)
	if len(touchIDs) > 0 {
		return true
	}
	return inpututil.IsKeyJustPressed(ebiten.KeyEnter)
}

// IsNegativeJustPressed returns a boolean value indicating whether the generic negative input is just pressed.
func IsNegativeJustPressed() bool {
	return inpututil.IsKeyJustPressed(ebiten.KeyEscape)
}

// JustClicked returns the cursor position when the primary mouse button
// was just pressed.
func JustClicked() (x, y int, ok bool) {
	if !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return 0, 0, false
	}
	x, y = ebiten.CursorPosition()
	return x, y, true
}

// IsEasyJustPressed selects the easy difficulty.
func IsEasyJustPressed() bool {
	return inpututil.IsKeyJustPressed(ebiten.KeyE)
}

// IsHardJustPressed selects the hard difficulty.
func IsHardJustPressed() bool {
	return inpututil.IsKeyJustPressed(ebiten.KeyH)
}
