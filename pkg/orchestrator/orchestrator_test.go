package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sowandreap/kalaha/pkg/client"
	"github.com/sowandreap/kalaha/pkg/repositories"
	"github.com/sowandreap/kalaha/pkg/store"
	"github.com/sowandreap/kalaha/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submitCall struct {
	sessionID uuid.UUID
	player    types.PlayerType
	pit       int
}

// fakeSessionClient records calls and delegates to configurable
// functions so tests control every server response.
type fakeSessionClient struct {
	mu          sync.Mutex
	fetchFunc   func(sessionID *uuid.UUID) (*types.GameData, error)
	submitFunc  func(sessionID uuid.UUID, player types.PlayerType, pit int) (*types.GameData, error)
	resetFunc   func(sessionID uuid.UUID, difficulty types.Difficulty) error
	fetchCalls  []*uuid.UUID
	submitCalls []submitCall
	resetCalls  []types.Difficulty
}

var _ client.SessionClient = (*fakeSessionClient)(nil)

func (f *fakeSessionClient) FetchSnapshot(ctx context.Context, sessionID *uuid.UUID) (*types.GameData, error) {
	f.mu.Lock()
	f.fetchCalls = append(f.fetchCalls, sessionID)
	fetchFunc := f.fetchFunc
	f.mu.Unlock()
	return fetchFunc(sessionID)
}

func (f *fakeSessionClient) SubmitMove(ctx context.Context, sessionID uuid.UUID, player types.PlayerType, pit int) (*types.GameData, error) {
	f.mu.Lock()
	f.submitCalls = append(f.submitCalls, submitCall{sessionID: sessionID, player: player, pit: pit})
	submitFunc := f.submitFunc
	f.mu.Unlock()
	return submitFunc(sessionID, player, pit)
}

func (f *fakeSessionClient) ResetSession(ctx context.Context, sessionID uuid.UUID, difficulty types.Difficulty) error {
	f.mu.Lock()
	f.resetCalls = append(f.resetCalls, difficulty)
	resetFunc := f.resetFunc
	f.mu.Unlock()
	if resetFunc == nil {
		return nil
	}
	return resetFunc(sessionID, difficulty)
}

func (f *fakeSessionClient) submitCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitCalls)
}

func snapshot(sessionID uuid.UUID, turn types.PlayerType) *types.GameData {
	return &types.GameData{
		SessionID:  sessionID,
		Difficulty: types.DifficultyEasy,
		Turn:       turn,
		Players: map[int]*types.Player{
			0: {BigPit: 0, Pits: []int{4, 4, 4, 4, 4, 4}},
			1: {BigPit: 0, Pits: []int{4, 4, 4, 4, 4, 4}},
		},
	}
}

func newTestOrchestrator(t *testing.T, fake *fakeSessionClient, opts NewTurnOrchestratorOptions) (*TurnOrchestrator, *store.GameStateStore) {
	t.Helper()
	gameStore := store.NewGameStateStore()
	opts.SessionClient = fake
	opts.Store = gameStore
	if opts.OpponentMoveDelay == 0 {
		opts.OpponentMoveDelay = 20 * time.Millisecond
	}
	if opts.OpponentMoveBackoff == 0 {
		opts.OpponentMoveBackoff = 5 * time.Millisecond
	}
	turnOrchestrator := NewTurnOrchestrator(opts)
	t.Cleanup(turnOrchestrator.Stop)
	return turnOrchestrator, gameStore
}

func TestTurnOrchestrator_StartLoadsSnapshot(t *testing.T) {
	sessionID := uuid.New()
	fake := &fakeSessionClient{
		fetchFunc: func(id *uuid.UUID) (*types.GameData, error) {
			return snapshot(sessionID, types.Player1), nil
		},
	}
	turnOrchestrator, gameStore := newTestOrchestrator(t, fake, NewTurnOrchestratorOptions{})

	require.NoError(t, turnOrchestrator.Start(context.Background()))

	gameData, version, loaded := gameStore.Current()
	require.True(t, loaded)
	assert.Equal(t, uint64(1), version)
	assert.Equal(t, sessionID, gameData.SessionID)
	assert.Equal(t, StateAwaitingHumanInput, turnOrchestrator.State())
}

func TestTurnOrchestrator_StartFetchFails(t *testing.T) {
	fake := &fakeSessionClient{
		fetchFunc: func(id *uuid.UUID) (*types.GameData, error) {
			return nil, &client.ErrProtocol{StatusCode: 500, Reason: "Internal Server Error"}
		},
	}
	turnOrchestrator, gameStore := newTestOrchestrator(t, fake, NewTurnOrchestratorOptions{})

	require.Error(t, turnOrchestrator.Start(context.Background()))

	// The store must stay empty on failure, never holding a partial
	// snapshot.
	_, _, loaded := gameStore.Current()
	assert.False(t, loaded)
}

func TestTurnOrchestrator_StartResumesCachedSession(t *testing.T) {
	sessionID := uuid.New()
	repository := repositories.NewInMemoryRepository()
	require.NoError(t, repository.SaveSession(context.Background(), repositories.SessionRecord{
		SessionID:  sessionID,
		Difficulty: types.DifficultyHard,
	}))

	fake := &fakeSessionClient{
		fetchFunc: func(id *uuid.UUID) (*types.GameData, error) {
			require.NotNil(t, id)
			return snapshot(*id, types.Player1), nil
		},
	}
	turnOrchestrator, gameStore := newTestOrchestrator(t, fake, NewTurnOrchestratorOptions{Repository: repository})

	require.NoError(t, turnOrchestrator.Start(context.Background()))

	gameData, _, _ := gameStore.Current()
	assert.Equal(t, sessionID, gameData.SessionID)
}

func TestTurnOrchestrator_StartFallsBackToFreshSession(t *testing.T) {
	staleID := uuid.New()
	freshID := uuid.New()
	repository := repositories.NewInMemoryRepository()
	require.NoError(t, repository.SaveSession(context.Background(), repositories.SessionRecord{
		SessionID: staleID,
	}))

	fake := &fakeSessionClient{
		fetchFunc: func(id *uuid.UUID) (*types.GameData, error) {
			if id != nil {
				return nil, &client.ErrProtocol{StatusCode: 404, Reason: "Not Found"}
			}
			return snapshot(freshID, types.Player1), nil
		},
	}
	turnOrchestrator, gameStore := newTestOrchestrator(t, fake, NewTurnOrchestratorOptions{Repository: repository})

	require.NoError(t, turnOrchestrator.Start(context.Background()))

	gameData, _, _ := gameStore.Current()
	assert.Equal(t, freshID, gameData.SessionID)
}

func TestTurnOrchestrator_SchedulesExactlyOneOpponentMove(t *testing.T) {
	sessionID := uuid.New()
	release := make(chan struct{})
	fake := &fakeSessionClient{
		fetchFunc: func(id *uuid.UUID) (*types.GameData, error) {
			return snapshot(sessionID, types.Player2), nil
		},
	}
	fake.submitFunc = func(id uuid.UUID, player types.PlayerType, pit int) (*types.GameData, error) {
		<-release
		return snapshot(sessionID, types.Player1), nil
	}
	turnOrchestrator, _ := newTestOrchestrator(t, fake, NewTurnOrchestratorOptions{})

	require.NoError(t, turnOrchestrator.Start(context.Background()))
	pending := turnOrchestrator.State()
	assert.Contains(t, []State{StateSchedulingOpponentMove, StateAwaitingOpponentMove}, pending)

	require.Eventually(t, func() bool {
		return fake.submitCallCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	// No second call may be issued while the first is outstanding, even
	// across several scheduling delays.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, fake.submitCallCount())
	assert.Equal(t, StateAwaitingOpponentMove, turnOrchestrator.State())

	close(release)
	require.Eventually(t, func() bool {
		return turnOrchestrator.State() == StateAwaitingHumanInput
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, fake.submitCallCount())
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, types.Player2, fake.submitCalls[0].player)
	assert.Equal(t, sessionID, fake.submitCalls[0].sessionID)
}

func TestTurnOrchestrator_RedundantNotificationIsNoOp(t *testing.T) {
	sessionID := uuid.New()
	release := make(chan struct{})
	fake := &fakeSessionClient{
		fetchFunc: func(id *uuid.UUID) (*types.GameData, error) {
			return snapshot(sessionID, types.Player2), nil
		},
	}
	fake.submitFunc = func(id uuid.UUID, player types.PlayerType, pit int) (*types.GameData, error) {
		<-release
		return snapshot(sessionID, types.Player1), nil
	}
	turnOrchestrator, gameStore := newTestOrchestrator(t, fake, NewTurnOrchestratorOptions{})

	require.NoError(t, turnOrchestrator.Start(context.Background()))

	require.Eventually(t, func() bool {
		return fake.submitCallCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	// Redundant re-notification with the same opponent-turn snapshot
	// must not schedule a second concurrent move.
	gameStore.Replace(snapshot(sessionID, types.Player2))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, fake.submitCallCount())

	close(release)
	// The outstanding response is stale now; the orchestrator discards
	// it and re-evaluates, eventually settling on the human's turn.
	require.Eventually(t, func() bool {
		return turnOrchestrator.State() == StateAwaitingHumanInput
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTurnOrchestrator_SubmitHumanMove(t *testing.T) {
	sessionID := uuid.New()
	fake := &fakeSessionClient{
		fetchFunc: func(id *uuid.UUID) (*types.GameData, error) {
			return snapshot(sessionID, types.Player1), nil
		},
	}
	fake.submitFunc = func(id uuid.UUID, player types.PlayerType, pit int) (*types.GameData, error) {
		// Extra-turn rule: the human keeps the turn.
		return snapshot(sessionID, types.Player1), nil
	}
	turnOrchestrator, gameStore := newTestOrchestrator(t, fake, NewTurnOrchestratorOptions{})

	require.NoError(t, turnOrchestrator.Start(context.Background()))
	require.NoError(t, turnOrchestrator.SubmitHumanMove(2))

	require.Eventually(t, func() bool {
		_, version, _ := gameStore.Current()
		return version == 2
	}, 2*time.Second, 5*time.Millisecond)

	gameData, _, _ := gameStore.Current()
	assert.Equal(t, sessionID, gameData.SessionID)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.submitCalls, 1)
	assert.Equal(t, types.Player1, fake.submitCalls[0].player)
	assert.Equal(t, 2, fake.submitCalls[0].pit)
}

func TestTurnOrchestrator_SubmitHumanMoveRejections(t *testing.T) {
	sessionID := uuid.New()

	outOfTurn := snapshot(sessionID, types.Player2)

	emptyPit := snapshot(sessionID, types.Player1)
	emptyPit.Players[0].Pits[3] = 0

	gameOver := snapshot(sessionID, types.Player1)
	winner := types.Player1
	gameOver.Winner = &winner

	tests := []struct {
		name     string
		snapshot *types.GameData
		pit      int
	}{
		{name: "out of turn", snapshot: outOfTurn, pit: 3},
		{name: "empty pit", snapshot: emptyPit, pit: 3},
		{name: "game over", snapshot: gameOver, pit: 3},
		{name: "pit out of range", snapshot: snapshot(sessionID, types.Player1), pit: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeSessionClient{
				fetchFunc: func(id *uuid.UUID) (*types.GameData, error) {
					return tt.snapshot.Copy(), nil
				},
			}
			// A long delay keeps the opponent scheduler out of the way.
			turnOrchestrator, gameStore := newTestOrchestrator(t, fake, NewTurnOrchestratorOptions{
				OpponentMoveDelay: time.Hour,
			})
			require.NoError(t, turnOrchestrator.Start(context.Background()))

			err := turnOrchestrator.SubmitHumanMove(tt.pit)
			require.Error(t, err)
			assert.True(t, IsInvalidAction(err))

			// No request was sent and the store did not move.
			assert.Equal(t, 0, fake.submitCallCount())
			_, version, _ := gameStore.Current()
			assert.Equal(t, uint64(1), version)
		})
	}
}

func TestTurnOrchestrator_ChangeDifficulty(t *testing.T) {
	sessionID := uuid.New()
	fake := &fakeSessionClient{}
	fake.fetchFunc = func(id *uuid.UUID) (*types.GameData, error) {
		gameData := snapshot(sessionID, types.Player1)
		fake.mu.Lock()
		resets := len(fake.resetCalls)
		fake.mu.Unlock()
		if resets > 0 {
			gameData.Difficulty = types.DifficultyHard
		}
		return gameData, nil
	}
	turnOrchestrator, gameStore := newTestOrchestrator(t, fake, NewTurnOrchestratorOptions{
		OpponentMoveDelay: time.Hour,
	})

	require.NoError(t, turnOrchestrator.Start(context.Background()))

	// Unchanged difficulty is a no-op without a network call.
	require.NoError(t, turnOrchestrator.ChangeDifficulty(types.DifficultyEasy))
	fake.mu.Lock()
	assert.Empty(t, fake.resetCalls)
	fake.mu.Unlock()

	require.NoError(t, turnOrchestrator.ChangeDifficulty(types.DifficultyHard))

	require.Eventually(t, func() bool {
		gameData, _, _ := gameStore.Current()
		return gameData.Difficulty == types.DifficultyHard
	}, 2*time.Second, 5*time.Millisecond)

	// The re-fetch must resume the same session, not orphan it.
	gameData, _, _ := gameStore.Current()
	assert.Equal(t, sessionID, gameData.SessionID)
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []types.Difficulty{types.DifficultyHard}, fake.resetCalls)
	require.Len(t, fake.fetchCalls, 2)
	require.NotNil(t, fake.fetchCalls[1])
	assert.Equal(t, sessionID, *fake.fetchCalls[1])
}

func TestTurnOrchestrator_OpponentMoveRetriesThenSurfaces(t *testing.T) {
	sessionID := uuid.New()
	fake := &fakeSessionClient{
		fetchFunc: func(id *uuid.UUID) (*types.GameData, error) {
			return snapshot(sessionID, types.Player2), nil
		},
	}
	fake.submitFunc = func(id uuid.UUID, player types.PlayerType, pit int) (*types.GameData, error) {
		return nil, &client.ErrNetwork{Err: context.DeadlineExceeded}
	}
	turnOrchestrator, gameStore := newTestOrchestrator(t, fake, NewTurnOrchestratorOptions{
		MaxOpponentMoveAttempts: 2,
	})

	require.NoError(t, turnOrchestrator.Start(context.Background()))

	var surfaced error
	require.Eventually(t, func() bool {
		select {
		case surfaced = <-turnOrchestrator.Errors():
			return true
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)

	assert.Contains(t, surfaced.Error(), "opponent move failed")
	assert.Equal(t, 2, fake.submitCallCount())

	// The guard is released and the last known-good snapshot survives.
	assert.Equal(t, StateIdle, turnOrchestrator.State())
	_, version, loaded := gameStore.Current()
	assert.True(t, loaded)
	assert.Equal(t, uint64(1), version)
}

func TestTurnOrchestrator_TerminalSnapshot(t *testing.T) {
	sessionID := uuid.New()
	gameData := snapshot(sessionID, types.Player1)
	winner := types.Player2
	gameData.Winner = &winner

	fake := &fakeSessionClient{
		fetchFunc: func(id *uuid.UUID) (*types.GameData, error) {
			return gameData.Copy(), nil
		},
	}
	turnOrchestrator, _ := newTestOrchestrator(t, fake, NewTurnOrchestratorOptions{})

	require.NoError(t, turnOrchestrator.Start(context.Background()))

	assert.Equal(t, StateTerminal, turnOrchestrator.State())
	err := turnOrchestrator.SubmitHumanMove(0)
	require.Error(t, err)
	assert.True(t, IsInvalidAction(err))
	assert.Equal(t, 0, fake.submitCallCount())
}
