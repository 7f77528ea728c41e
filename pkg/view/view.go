// Package view derives render-ready values from a game snapshot. All
// functions are pure; presentation code recomputes them on every store
// change and never caches them.
package view

import (
	"fmt"

	"github.com/sowandreap/kalaha/pkg/types"
)

// StoneDisplayThreshold is the largest stone count with its own visual
// tier. Larger counts share one "many stones" bucket. Cosmetic only.
const StoneDisplayThreshold = 6

// TierMultiple is the shared tier for counts above the threshold.
const TierMultiple = StoneDisplayThreshold + 1

// IsPitEnabled reports whether the given player's side is interactive:
// it is their turn and the game is still in progress.
func IsPitEnabled(gameData *types.GameData, player types.PlayerType) bool {
	if gameData == nil || gameData.GameOver() {
		return false
	}
	return gameData.Turn == player
}

// PitDisplayValue returns the stone count for a pit, or 0 when the
// snapshot does not contain it.
func PitDisplayValue(gameData *types.GameData, player types.PlayerType, pit int) int {
	if gameData == nil || pit < 0 {
		return 0
	}
	side, ok := gameData.Players[int(player)]
	if !ok || pit >= len(side.Pits) {
		return 0
	}
	return side.Pits[pit]
}

// BigPitValue returns the player's scoring store count.
func BigPitValue(gameData *types.GameData, player types.PlayerType) int {
	if gameData == nil {
		return 0
	}
	side, ok := gameData.Players[int(player)]
	if !ok {
		return 0
	}
	return side.BigPit
}

// StoneTier maps a stone count to its display bucket: counts up to the
// threshold each get their own tier, everything above shares one.
func StoneTier(value int) int {
	if value > StoneDisplayThreshold {
		return TierMultiple
	}
	if value < 0 {
		return 0
	}
	return value
}

// WinnerBannerText is empty while the game is in progress and names the
// winner once it has ended.
func WinnerBannerText(gameData *types.GameData) string {
	if gameData == nil || gameData.Winner == nil {
		return ""
	}
	return fmt.Sprintf("%s wins!", *gameData.Winner)
}

// DifficultyLabel returns the human-readable difficulty of the current
// session.
func DifficultyLabel(gameData *types.GameData) string {
	if gameData == nil {
		return ""
	}
	return gameData.Difficulty.String()
}

// PitView is one pit ready for rendering.
type PitView struct {
	Value   int
	Tier    int
	Enabled bool
}

// SideView is one player's half of the board.
type SideView struct {
	BigPit   int
	Pits     []PitView
	IsTurn   bool
	IsWinner bool
}

// BoardView bundles everything the board presentation needs.
type BoardView struct {
	Loaded     bool
	Banner     string
	Difficulty string
	Sides      [2]SideView
}

// NewBoardView derives the full render bundle from a snapshot. A nil
// snapshot yields an unloaded view.
func NewBoardView(gameData *types.GameData) BoardView {
	boardView := BoardView{}
	if gameData == nil {
		return boardView
	}

	boardView.Loaded = true
	boardView.Banner = WinnerBannerText(gameData)
	boardView.Difficulty = DifficultyLabel(gameData)

	for _, player := range []types.PlayerType{types.Player1, types.Player2} {
		enabled := IsPitEnabled(gameData, player)
		sideView := SideView{
			BigPit: BigPitValue(gameData, player),
			IsTurn: enabled,
		}
		if gameData.Winner != nil && *gameData.Winner == player {
			sideView.IsWinner = true
		}
		for pit := 0; pit < types.NumPits; pit++ {
			value := PitDisplayValue(gameData, player, pit)
			sideView.Pits = append(sideView.Pits, PitView{
				Value: value,
				Tier:  StoneTier(value),
				// A pit is clickable only on an enabled side with
				// stones left to sow.
				Enabled: enabled && value > 0,
			})
		}
		boardView.Sides[player] = sideView
	}

	return boardView
}
