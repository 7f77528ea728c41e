package scenes

import (
	"image"
	"image/color"
	"strconv"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/sowandreap/kalaha/client/fonts"
	"github.com/sowandreap/kalaha/client/input"
	"github.com/sowandreap/kalaha/pkg/log"
	"github.com/sowandreap/kalaha/pkg/orchestrator"
	"github.com/sowandreap/kalaha/pkg/store"
	"github.com/sowandreap/kalaha/pkg/types"
	"github.com/sowandreap/kalaha/pkg/view"
)

const (
	pitSize     = 60
	pitGap      = 10
	pitRowX     = 120
	topRowY     = 170
	bottomRowY  = 270
	bigPitWidth = 70
	bigPitTop   = 160
	bigPitH     = 170
)

var (
	boardColor      = color.RGBA{24, 48, 32, 255}
	pitColor        = color.RGBA{92, 64, 40, 255}
	pitEnabledColor = color.RGBA{140, 96, 52, 255}
	stoneColor      = color.RGBA{230, 225, 200, 255}
	dimTextColor    = color.RGBA{180, 180, 180, 255}
	winnerColor     = color.RGBA{250, 210, 90, 255}
)

// stoneOffsets are the positions of individual stones inside a pit, up
// to the display threshold; larger counts render a shared cluster.
var stoneOffsets = [view.StoneDisplayThreshold][2]int{
	{18, 16}, {40, 16}, {18, 32}, {40, 32}, {18, 48}, {40, 48},
}

// BoardScene renders the board from view model derivations and turns
// clicks on the local player's row into move submissions. It holds no
// game state of its own.
type BoardScene struct {
	*BaseScene

	gameStore    *store.GameStateStore
	orchestrator *orchestrator.TurnOrchestrator
	// localPitRects are the clickable regions of the local player's
	// pits, indexed by pit id.
	localPitRects [types.NumPits]image.Rectangle
}

var _ Scene = &BoardScene{}

func NewBoardScene(gameStore *store.GameStateStore, turnOrchestrator *orchestrator.TurnOrchestrator) (Scene, error) {
	return &BoardScene{
		BaseScene:    &BaseScene{},
		gameStore:    gameStore,
		orchestrator: turnOrchestrator,
	}, nil
}

func (s *BoardScene) Init() error {
	for pit := 0; pit < types.NumPits; pit++ {
		x := pitRowX + pit*(pitSize+pitGap)
		s.localPitRects[pit] = image.Rect(x, bottomRowY, x+pitSize, bottomRowY+pitSize)
	}
	return nil
}

func (s *BoardScene) Update() error {
	if x, y, ok := input.JustClicked(); ok {
		for pit, rect := range s.localPitRects {
			if !image.Pt(x, y).In(rect) {
				continue
			}
			if err := s.orchestrator.SubmitHumanMove(pit); err != nil {
				if orchestrator.IsInvalidAction(err) {
					log.Debug("Move rejected: %v", err)
				} else {
					log.Error("Failed to submit move: %v", err)
				}
			}
			break
		}
	}

	if input.IsEasyJustPressed() {
		s.changeDifficulty(types.DifficultyEasy)
	}
	if input.IsHardJustPressed() {
		s.changeDifficulty(types.DifficultyHard)
	}

	return nil
}

func (s *BoardScene) changeDifficulty(difficulty types.Difficulty) {
	if err := s.orchestrator.ChangeDifficulty(difficulty); err != nil {
		if orchestrator.IsInvalidAction(err) {
			log.Debug("Difficulty change rejected: %v", err)
		} else {
			log.Error("Failed to change difficulty: %v", err)
		}
	}
}

func (s *BoardScene) Draw(screen *ebiten.Image) {
	screen.Fill(boardColor)

	gameData, _, loaded := s.gameStore.Current()
	if !loaded {
		drawOverlayText(screen, "Loading...", fonts.LargeFont, color.White)
		return
	}
	boardView := view.NewBoardView(gameData)

	w := float64(screen.Bounds().Dx())
	localPlayer := s.orchestrator.LocalPlayer()
	remotePlayer := localPlayer.Opponent()
	localSide := boardView.Sides[localPlayer]
	remoteSide := boardView.Sides[remotePlayer]

	// Top bar: difficulty label and turn indicator or winner banner.
	drawCenteredText(screen, "Difficulty: "+boardView.Difficulty+"  [E/H]", fonts.NormalFont, 110, 20, dimTextColor)
	if boardView.Banner != "" {
		drawCenteredText(screen, boardView.Banner, fonts.LargeFont, w/2, 60, winnerColor)
	} else {
		turnLabel := remotePlayer.String() + " is thinking..."
		if localSide.IsTurn {
			turnLabel = "Your turn"
		}
		drawCenteredText(screen, turnLabel, fonts.NormalFont, w/2, 70, color.White)
	}

	// The opponent's store sits on the left, the local store on the
	// right; the opponent row renders in reverse sowing order.
	s.drawBigPit(screen, 30, remoteSide, remotePlayer.String())
	s.drawBigPit(screen, screen.Bounds().Dx()-30-bigPitWidth, localSide, localPlayer.String())

	for pit := 0; pit < types.NumPits; pit++ {
		column := types.NumPits - 1 - pit
		x := pitRowX + column*(pitSize+pitGap)
		s.drawPit(screen, x, topRowY, remoteSide.Pits[pit])
	}
	for pit := 0; pit < types.NumPits; pit++ {
		rect := s.localPitRects[pit]
		s.drawPit(screen, rect.Min.X, rect.Min.Y, localSide.Pits[pit])
	}
}

func (s *BoardScene) drawPit(screen *ebiten.Image, x, y int, pitView view.PitView) {
	fill := pitColor
	if pitView.Enabled {
		fill = pitEnabledColor
	}
	vector.DrawFilledRect(screen, float32(x), float32(y), pitSize, pitSize, fill, false)

	if pitView.Tier == view.TierMultiple {
		// Too many stones to draw individually.
		vector.DrawFilledCircle(screen, float32(x)+pitSize/2, float32(y)+pitSize/2-4, 14, stoneColor, false)
	} else {
		for i := 0; i < pitView.Tier; i++ {
			vector.DrawFilledCircle(screen, float32(x+stoneOffsets[i][0]), float32(y+stoneOffsets[i][1])-8, 5, stoneColor, false)
		}
	}

	drawCenteredText(screen, strconv.Itoa(pitView.Value), fonts.PitFont, float64(x)+pitSize/2, float64(y)+pitSize-16, color.White)
}

func (s *BoardScene) drawBigPit(screen *ebiten.Image, x int, sideView view.SideView, name string) {
	vector.DrawFilledRect(screen, float32(x), bigPitTop, bigPitWidth, bigPitH, pitColor, false)

	valueColor := color.Color(color.White)
	if sideView.IsWinner {
		valueColor = winnerColor
	}
	drawCenteredText(screen, strconv.Itoa(sideView.BigPit), fonts.LargeFont, float64(x)+bigPitWidth/2, bigPitTop+bigPitH/2-20, valueColor)
	drawCenteredText(screen, name, fonts.NormalFont, float64(x)+bigPitWidth/2, bigPitTop+bigPitH+16, dimTextColor)
}
