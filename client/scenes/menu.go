package scenes

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/sowandreap/kalaha/client/fonts"
	"github.com/sowandreap/kalaha/client/input"
)

type MenuScene struct {
	*BaseScene

	onStart func()
}

var _ Scene = &MenuScene{}

type MenuSceneOptions struct {
	// OnStart is called when the player asks to start or resume a game.
	OnStart func()
}

func NewMenuScene(opts MenuSceneOptions) (Scene, error) {
	return &MenuScene{
		BaseScene: &BaseScene{},
		onStart:   opts.OnStart,
	}, nil
}

func (s *MenuScene) Update() error {
	if input.IsPositiveJustPressed() {
		s.onStart()
	}
	return nil
}

func (s *MenuScene) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{24, 48, 32, 255})
	w := float64(screen.Bounds().Dx())
	h := float64(screen.Bounds().Dy())
	drawCenteredText(screen, "KALAHA", fonts.LargeFont, w/2, h/2-60, color.White)
	drawCenteredText(screen, "Click to play", fonts.NormalFont, w/2, h/2, color.White)
	drawCenteredText(screen, "E / H switches difficulty during a game", fonts.NormalFont, w/2, h/2+40, color.RGBA{180, 180, 180, 255})
}
