package scenes

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/sowandreap/kalaha/client/fonts"
)

type ErrorScene struct {
	*BaseScene

	msg string
}

var _ Scene = &ErrorScene{}

func NewErrorScene(msg string) (Scene, error) {
	return &ErrorScene{
		BaseScene: &BaseScene{},
		msg:       msg,
	}, nil
}

func (s *ErrorScene) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{32, 24, 24, 255})
	drawOverlayText(screen, s.msg, fonts.LargeFont, color.White)
	drawCenteredText(screen, "Click to return to the menu", fonts.NormalFont,
		float64(screen.Bounds().Dx())/2, float64(screen.Bounds().Dy())/2+60, color.RGBA{180, 180, 180, 255})
}
