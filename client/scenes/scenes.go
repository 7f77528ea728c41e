package scenes

import (
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font"
)

type Scene interface {
	Init() error
	Destroy() error
	Update() error
	Draw(screen *ebiten.Image)
}

// BaseScene provides no-op lifecycle methods for scenes that do not
// need them.
type BaseScene struct {
}

func (s *BaseScene) Init() error {
	return nil
}

func (s *BaseScene) Destroy() error {
	return nil
}

func (s *BaseScene) Update() error {
	return nil
}

// drawCenteredText draws t horizontally centered around cx with the
// text baseline at cy.
func drawCenteredText(screen *ebiten.Image, t string, face font.Face, cx, cy float64, clr color.Color) {
	bounds, _ := font.BoundString(face, t)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(cx-float64(bounds.Max.X>>6)/2, cy)
	op.ColorScale.ScaleWithColor(clr)
	text.DrawWithOptions(screen, t, face, op)
}

// drawOverlayText draws an uppercased message in the middle of the
// screen.
func drawOverlayText(screen *ebiten.Image, t string, face font.Face, clr color.Color) {
	t = strings.ToUpper(t)
	bounds, _ := font.BoundString(face, t)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(
		float64(screen.Bounds().Dx())/2-float64(bounds.Max.X>>6)/2,
		float64(screen.Bounds().Dy())/2-float64(bounds.Max.Y>>6)/2,
	)
	op.ColorScale.ScaleWithColor(clr)
	text.DrawWithOptions(screen, t, face, op)
}
