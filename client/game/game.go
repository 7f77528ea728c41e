package game

import (
	"context"
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/sowandreap/kalaha/client/fonts"
	"github.com/sowandreap/kalaha/client/input"
	"github.com/sowandreap/kalaha/client/scenes"
	"github.com/sowandreap/kalaha/pkg/log"
	"github.com/sowandreap/kalaha/pkg/orchestrator"
	"github.com/sowandreap/kalaha/pkg/store"
)

const (
	DefaultScreenWidth  = 640
	DefaultScreenHeight = 480

	// noticeDuration is how long a transient failure notice stays on
	// screen. The board keeps showing the last known-good snapshot.
	noticeDuration = 4 * time.Second
)

type GameMode int

const (
	GameModeMenu GameMode = iota
	GameModeStarting
	GameModePlay
	GameModeError
)

func (m GameMode) String() string {
	switch m {
	case GameModeMenu:
		return "Menu"
	case GameModeStarting:
		return "Starting"
	case GameModePlay:
		return "Play"
	case GameModeError:
		return "Error"
	}
	return "Unknown"
}

// Game implements ebiten.Game interface, which has Update, Draw and Layout methods.
type Game struct {
	// debug is a boolean value indicating whether debug mode is enabled.
	debug bool
	// gameStore is the single mirror of server game state.
	gameStore *store.GameStateStore
	// orchestrator drives turn evaluation and all network traffic.
	orchestrator *orchestrator.TurnOrchestrator
	// mode is the current game mode.
	mode GameMode
	// scene is the current scene.
	scene scenes.Scene

	startErrChan chan error
	notice       string
	noticeUntil  time.Time
}

type NewGameOptions struct {
	Debug        bool
	Store        *store.GameStateStore
	Orchestrator *orchestrator.TurnOrchestrator
}

func NewGame(opts NewGameOptions) (ebiten.Game, error) {
	g := &Game{
		debug:        opts.Debug,
		gameStore:    opts.Store,
		orchestrator: opts.Orchestrator,
	}

	if err := g.loadMenu(); err != nil {
		return nil, fmt.Errorf("failed to load menu scene: %v", err)
	}

	return g, nil
}

func (g *Game) SetScene(scene scenes.Scene) error {
	if g.scene != nil {
		if err := g.scene.Destroy(); err != nil {
			return fmt.Errorf("failed to destroy previous scene: %v", err)
		}
	}

	g.scene = scene
	if err := g.scene.Init(); err != nil {
		return fmt.Errorf("failed to initialize scene: %v", err)
	}

	return nil
}

func (g *Game) loadMenu() error {
	menu, err := scenes.NewMenuScene(scenes.MenuSceneOptions{
		OnStart: func() {
			g.startGame()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create menu scene: %v", err)
	}
	if err := g.SetScene(menu); err != nil {
		return fmt.Errorf("failed to set menu scene: %v", err)
	}
	g.mode = GameModeMenu
	return nil
}

// startGame starts the orchestrator in the background. Its initial
// snapshot fetch is a network call and must not block the update loop.
func (g *Game) startGame() {
	g.mode = GameModeStarting
	g.setNotice("Connecting to server...")
	g.startErrChan = make(chan error, 1)
	go func() {
		g.startErrChan <- g.orchestrator.Start(context.Background())
	}()
}

func (g *Game) loadBoard() error {
	board, err := scenes.NewBoardScene(g.gameStore, g.orchestrator)
	if err != nil {
		return fmt.Errorf("failed to create board scene: %v", err)
	}
	if err := g.SetScene(board); err != nil {
		return fmt.Errorf("failed to set board scene: %v", err)
	}
	g.mode = GameModePlay
	return nil
}

func (g *Game) loadError(msg string) error {
	g.orchestrator.Stop()
	errorScene, err := scenes.NewErrorScene(msg)
	if err != nil {
		return fmt.Errorf("failed to create error scene: %v", err)
	}
	if err := g.SetScene(errorScene); err != nil {
		return fmt.Errorf("failed to set error scene: %v", err)
	}
	g.mode = GameModeError
	return nil
}

func (g *Game) Update() error {
	g.checkOrchestratorErrors()

	switch g.mode {
	case GameModeStarting:
		select {
		case err := <-g.startErrChan:
			if err != nil {
				log.Error("Failed to start game: %v", err)
				if err := g.loadError("Network Error"); err != nil {
					return fmt.Errorf("failed to load error scene: %v", err)
				}
				break
			}
			if err := g.loadBoard(); err != nil {
				return fmt.Errorf("failed to load board scene: %v", err)
			}
		default:
		}
	case GameModePlay:
		if input.IsNegativeJustPressed() {
			g.orchestrator.Stop()
			if err := g.loadMenu(); err != nil {
				return fmt.Errorf("failed to load menu scene: %v", err)
			}
		}
	case GameModeError:
		if input.IsPositiveJustPressed() {
			if err := g.loadMenu(); err != nil {
				return fmt.Errorf("failed to load menu scene: %v", err)
			}
		}
	}

	if err := g.scene.Update(); err != nil {
		return fmt.Errorf("failed to update scene: %v", err)
	}

	return nil
}

// checkOrchestratorErrors drains surfaced transient failures. The store
// keeps its last known-good snapshot, so the board stays playable and
// the user may simply retry.
func (g *Game) checkOrchestratorErrors() {
	select {
	case err := <-g.orchestrator.Errors():
		g.setNotice(fmt.Sprintf("Request failed: %v", err))
	default:
	}
}

func (g *Game) setNotice(notice string) {
	g.notice = notice
	g.noticeUntil = time.Now().Add(noticeDuration)
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.scene.Draw(screen)
	g.drawNotice(screen)
	if g.debug {
		g.drawDebugOverlay(screen)
	}
}

func (g *Game) drawNotice(screen *ebiten.Image) {
	if g.notice == "" || time.Now().After(g.noticeUntil) {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(20, float64(screen.Bounds().Dy())-20)
	op.ColorScale.ScaleWithColor(color.RGBA{255, 120, 120, 255})
	text.DrawWithOptions(screen, g.notice, fonts.NormalFont, op)
}

func (g *Game) drawDebugOverlay(screen *ebiten.Image) {
	ebitenutil.DebugPrint(screen, fmt.Sprintf("\n   FPS: %0.1f", ebiten.ActualFPS()))
	ebitenutil.DebugPrint(screen, fmt.Sprintf("\n\n   TPS: %0.1f", ebiten.ActualTPS()))
	ebitenutil.DebugPrint(screen, fmt.Sprintf("\n\n\n   Mode: %s", g.mode))
	ebitenutil.DebugPrint(screen, fmt.Sprintf("\n\n\n\n   Orchestrator: %s", g.orchestrator.State()))
	ebitenutil.DebugPrint(screen, fmt.Sprintf("\n\n\n\n\n   Store version: %d", g.gameStore.Version()))
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	return DefaultScreenWidth, DefaultScreenHeight
}
