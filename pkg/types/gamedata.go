package types

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// NumPits is the number of sowing pits per player side.
const NumPits = 6

// PlayerType identifies one of the two players. The wire encoding is a
// small integer, which some server versions quote as a string.
type PlayerType int

const (
	Player1 PlayerType = 0
	Player2 PlayerType = 1
)

func (p PlayerType) String() string {
	switch p {
	case Player1:
		return "Player 1"
	case Player2:
		return "Player 2"
	}
	return "Unknown"
}

// Opponent returns the other player.
func (p PlayerType) Opponent() PlayerType {
	if p == Player1 {
		return Player2
	}
	return Player1
}

func (p PlayerType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(p))), nil
}

func (p *PlayerType) UnmarshalJSON(b []byte) error {
	n, err := unmarshalEnumInt(b)
	if err != nil {
		return fmt.Errorf("failed to unmarshal player type: %v", err)
	}
	if n != int(Player1) && n != int(Player2) {
		return fmt.Errorf("invalid player type: %d", n)
	}
	*p = PlayerType(n)
	return nil
}

// Difficulty is the server-side AI strength. Changed only via a reset.
type Difficulty int

const (
	DifficultyEasy Difficulty = 0
	DifficultyHard Difficulty = 1
)

func (d Difficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "Easy"
	case DifficultyHard:
		return "Hard"
	}
	return "Unknown"
}

func (d Difficulty) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(d))), nil
}

func (d *Difficulty) UnmarshalJSON(b []byte) error {
	n, err := unmarshalEnumInt(b)
	if err != nil {
		return fmt.Errorf("failed to unmarshal difficulty: %v", err)
	}
	if n != int(DifficultyEasy) && n != int(DifficultyHard) {
		return fmt.Errorf("invalid difficulty: %d", n)
	}
	*d = Difficulty(n)
	return nil
}

// unmarshalEnumInt accepts both bare and quoted small integers.
func unmarshalEnumInt(b []byte) (int, error) {
	s := string(bytes.Trim(b, `"`))
	return strconv.Atoi(s)
}

// Player is one side of the board.
type Player struct {
	// BigPit is the player's scoring store.
	BigPit int `json:"big_pit"`
	// Pits are the player's sowing pits in sowing order.
	Pits []int `json:"pits"`
}

func (p *Player) Copy() *Player {
	pits := make([]int, len(p.Pits))
	copy(pits, p.Pits)
	return &Player{
		BigPit: p.BigPit,
		Pits:   pits,
	}
}

// GameData is a full snapshot of one game session as reported by the
// server. Snapshots are replaced wholesale, never mutated field by field.
type GameData struct {
	// SessionID correlates all requests belonging to one game.
	SessionID uuid.UUID `json:"session_id"`
	// Difficulty is the server-side AI strength.
	Difficulty Difficulty `json:"difficulty"`
	// Turn is whose move is currently legal.
	Turn PlayerType `json:"turn"`
	// Winner is set once the game has ended, nil while in progress.
	Winner *PlayerType `json:"winner,omitempty"`
	// Players maps player index (0, 1) to board sides.
	Players map[int]*Player `json:"players"`
}

// Copy returns a deep copy so callers can never alias the stored snapshot.
func (g *GameData) Copy() *GameData {
	newData := &GameData{
		SessionID:  g.SessionID,
		Difficulty: g.Difficulty,
		Turn:       g.Turn,
		Players:    make(map[int]*Player, len(g.Players)),
	}
	if g.Winner != nil {
		winner := *g.Winner
		newData.Winner = &winner
	}
	for index, player := range g.Players {
		newData.Players[index] = player.Copy()
	}
	return newData
}

// GameOver reports whether the server has declared a winner.
func (g *GameData) GameOver() bool {
	return g.Winner != nil
}

// Validate checks the structural invariants of a snapshot: exactly two
// sides indexed 0 and 1, each with six non-negative pits and a
// non-negative big pit.
func (g *GameData) Validate() error {
	if g.SessionID == uuid.Nil {
		return fmt.Errorf("missing session id")
	}
	if len(g.Players) != 2 {
		return fmt.Errorf("expected 2 players, got %d", len(g.Players))
	}
	for _, index := range []int{int(Player1), int(Player2)} {
		player, ok := g.Players[index]
		if !ok {
			return fmt.Errorf("missing player %d", index)
		}
		if len(player.Pits) != NumPits {
			return fmt.Errorf("player %d: expected %d pits, got %d", index, NumPits, len(player.Pits))
		}
		if player.BigPit < 0 {
			return fmt.Errorf("player %d: negative big pit", index)
		}
		for i, stones := range player.Pits {
			if stones < 0 {
				return fmt.Errorf("player %d: negative stone count in pit %d", index, i)
			}
		}
	}
	if g.Winner != nil && *g.Winner != Player1 && *g.Winner != Player2 {
		return fmt.Errorf("invalid winner: %d", *g.Winner)
	}
	return nil
}
