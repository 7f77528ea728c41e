package fonts

import (
	"fmt"

	"github.com/golang/freetype/truetype"
	mplus "github.com/hajimehoshi/ebiten/v2/examples/resources/fonts"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

func init() {
	if err := loadFonts(); err != nil {
		panic(fmt.Sprintf("Failed to load fonts: %v", err))
	}
}

// PitFont renders stone counts on the board.
var PitFont font.Face

// NormalFont renders menus and labels.
var NormalFont font.Face

// LargeFont renders the winner banner and overlay messages.
var LargeFont font.Face

func loadFonts() error {
	const dpi = 72

	tt, err := opentype.Parse(mplus.MPlus1pRegular_ttf)
	if err != nil {
		return fmt.Errorf("failed to parse font: %v", err)
	}
	PitFont, err = opentype.NewFace(tt, &opentype.FaceOptions{
		Size:    20,
		DPI:     dpi,
		Hinting: font.HintingVertical,
	})
	if err != nil {
		return fmt.Errorf("failed to create font face: %v", err)
	}

	ttfFont, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse font: %v", err)
	}

	NormalFont = truetype.NewFace(ttfFont, &truetype.Options{
		Size:    18,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})

	LargeFont = truetype.NewFace(ttfFont, &truetype.Options{
		Size:    32,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})

	return nil
}
