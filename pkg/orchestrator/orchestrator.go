package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sowandreap/kalaha/pkg/client"
	"github.com/sowandreap/kalaha/pkg/log"
	"github.com/sowandreap/kalaha/pkg/repositories"
	"github.com/sowandreap/kalaha/pkg/store"
	"github.com/sowandreap/kalaha/pkg/types"
)

const (
	// DefaultOpponentMoveDelay keeps the opponent's move visually
	// perceptible instead of instantaneous.
	DefaultOpponentMoveDelay = 1 * time.Second
	// DefaultOpponentMoveBackoff is the initial retry backoff for a
	// failed autonomous opponent move. It doubles per attempt.
	DefaultOpponentMoveBackoff = 500 * time.Millisecond
	// DefaultMaxOpponentMoveAttempts bounds opponent move retries before
	// the failure is surfaced to the user.
	DefaultMaxOpponentMoveAttempts = 3
	// OpponentPlaceholderPit is sent with opponent moves. The server
	// computes the real move and ignores the pit id.
	OpponentPlaceholderPit = 0
)

// State is the orchestrator's position in the per-session turn cycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingHumanInput
	StateSchedulingOpponentMove
	StateAwaitingOpponentMove
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingHumanInput:
		return "AwaitingHumanInput"
	case StateSchedulingOpponentMove:
		return "SchedulingOpponentMove"
	case StateAwaitingOpponentMove:
		return "AwaitingOpponentMove"
	case StateTerminal:
		return "Terminal"
	}
	return "Unknown"
}

// TurnOrchestrator watches the game state store and decides after every
// replacement whether a follow-up action is needed. It is the only
// component allowed to issue a network call without direct user
// interaction: the automatic opponent move when it is the server-side
// player's turn.
type TurnOrchestrator struct {
	sessionClient client.SessionClient
	gameStore     *store.GameStateStore
	repository    repositories.Repository
	localPlayer   types.PlayerType

	opponentMoveDelay       time.Duration
	opponentMoveBackoff     time.Duration
	maxOpponentMoveAttempts int

	mu            sync.Mutex
	state         State
	inFlight      bool
	subscribed    bool
	opponentTimer *time.Timer
	lastSaved     *repositories.SessionRecord
	ctx           context.Context
	cancelCtx     context.CancelFunc

	errChan chan error
}

type NewTurnOrchestratorOptions struct {
	SessionClient client.SessionClient
	Store         *store.GameStateStore
	// Repository caches the session identity across runs. Optional.
	Repository repositories.Repository
	// LocalPlayer is the interactively controlled player. Defaults to
	// Player1; the other side is driven by the server AI.
	LocalPlayer             types.PlayerType
	OpponentMoveDelay       time.Duration
	OpponentMoveBackoff     time.Duration
	MaxOpponentMoveAttempts int
}

func NewTurnOrchestrator(opts NewTurnOrchestratorOptions) *TurnOrchestrator {
	opponentMoveDelay := opts.OpponentMoveDelay
	if opponentMoveDelay <= 0 {
		opponentMoveDelay = DefaultOpponentMoveDelay
	}
	opponentMoveBackoff := opts.OpponentMoveBackoff
	if opponentMoveBackoff <= 0 {
		opponentMoveBackoff = DefaultOpponentMoveBackoff
	}
	maxOpponentMoveAttempts := opts.MaxOpponentMoveAttempts
	if maxOpponentMoveAttempts <= 0 {
		maxOpponentMoveAttempts = DefaultMaxOpponentMoveAttempts
	}

	return &TurnOrchestrator{
		sessionClient:           opts.SessionClient,
		gameStore:               opts.Store,
		repository:              opts.Repository,
		localPlayer:             opts.LocalPlayer,
		opponentMoveDelay:       opponentMoveDelay,
		opponentMoveBackoff:     opponentMoveBackoff,
		maxOpponentMoveAttempts: maxOpponentMoveAttempts,
		errChan:                 make(chan error, 16),
	}
}

// Start subscribes to the store and performs the initial snapshot
// fetch, resuming the previously cached session when one exists. The
// orchestrator re-evaluates once per accepted store replacement from
// then on.
func (o *TurnOrchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.cancelCtx != nil {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	o.ctx = ctx
	o.cancelCtx = cancel
	o.state = StateIdle
	subscribe := !o.subscribed
	o.subscribed = true
	o.mu.Unlock()

	if subscribe {
		o.gameStore.Subscribe(func(gameData *types.GameData, version uint64) {
			o.evaluate(gameData, version)
		})
	}

	var sessionID *uuid.UUID
	if o.repository != nil {
		record, err := o.repository.LoadLastSession(ctx)
		switch {
		case err == nil:
			log.Info("Resuming session %s", record.SessionID)
			sessionID = &record.SessionID
		case repositories.IsNotFound(err):
			log.Debug("No cached session, requesting a new one")
		default:
			log.Warn("Failed to load cached session: %v", err)
		}
	}

	gameData, err := o.sessionClient.FetchSnapshot(ctx, sessionID)
	if err != nil && sessionID != nil {
		// The cached session may have expired server-side.
		log.Warn("Failed to resume session %s, requesting a new one: %v", *sessionID, err)
		gameData, err = o.sessionClient.FetchSnapshot(ctx, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch initial snapshot: %v", err)
	}

	o.gameStore.Replace(gameData)
	return nil
}

// Stop cancels any in-flight work. The store keeps its last known-good
// snapshot.
func (o *TurnOrchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancelCtx == nil {
		log.Warn("Orchestrator already stopped")
		return
	}
	o.cancelCtx()
	o.cancelCtx = nil
	o.cancelOpponentTimerLocked()
	o.setStateLocked(StateIdle)
	log.Info("Orchestrator stopped")
}

// State returns the current state machine position.
func (o *TurnOrchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LocalPlayer returns the interactively controlled player.
func (o *TurnOrchestrator) LocalPlayer() types.PlayerType {
	return o.localPlayer
}

// Errors delivers transient failures surfaced for the UI. Entries are
// dropped rather than blocking when nobody is draining the channel.
func (o *TurnOrchestrator) Errors() <-chan error {
	return o.errChan
}

// SubmitHumanMove requests that the local player sow the given pit. It
// fast-fails with ErrInvalidAction when the move is locally known to be
// illegal; the server remains the authority and may still reject.
func (o *TurnOrchestrator) SubmitHumanMove(pit int) error {
	if pit < 0 || pit >= types.NumPits {
		return &ErrInvalidAction{Reason: fmt.Sprintf("pit %d out of range", pit)}
	}

	gameData, version, loaded := o.gameStore.Current()
	if !loaded {
		return &ErrInvalidAction{Reason: "no game loaded"}
	}
	if gameData.GameOver() {
		return &ErrInvalidAction{Reason: "game is over"}
	}
	if gameData.Turn != o.localPlayer {
		return &ErrInvalidAction{Reason: fmt.Sprintf("it is not %s's turn", o.localPlayer)}
	}
	if gameData.Players[int(o.localPlayer)].Pits[pit] == 0 {
		return &ErrInvalidAction{Reason: fmt.Sprintf("pit %d is empty", pit)}
	}

	o.mu.Lock()
	if o.ctx == nil || o.ctx.Err() != nil {
		o.mu.Unlock()
		return &ErrInvalidAction{Reason: "orchestrator is not running"}
	}
	if o.inFlight {
		o.mu.Unlock()
		return &ErrInvalidAction{Reason: "another request is in flight"}
	}
	o.inFlight = true
	ctx := o.ctx
	o.mu.Unlock()

	sessionID := gameData.SessionID
	go func() {
		newData, err := o.sessionClient.SubmitMove(ctx, sessionID, o.localPlayer, pit)

		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()

		if err != nil {
			o.surfaceError(fmt.Errorf("failed to submit move: %v", err))
			return
		}
		if _, ok := o.gameStore.ReplaceIf(version, newData); !ok {
			log.Warn("Discarding stale move response for session %s", sessionID)
		}
	}()

	return nil
}

// ChangeDifficulty resets the current session under the new difficulty
// and re-fetches it with the same session id so the session is resumed,
// not orphaned. A no-op when the difficulty is unchanged.
func (o *TurnOrchestrator) ChangeDifficulty(difficulty types.Difficulty) error {
	gameData, _, loaded := o.gameStore.Current()
	if !loaded {
		return &ErrInvalidAction{Reason: "no game loaded"}
	}
	if gameData.Difficulty == difficulty {
		log.Debug("Difficulty already %s, nothing to do", difficulty)
		return nil
	}

	o.mu.Lock()
	if o.ctx == nil || o.ctx.Err() != nil {
		o.mu.Unlock()
		return &ErrInvalidAction{Reason: "orchestrator is not running"}
	}
	if o.inFlight {
		o.mu.Unlock()
		return &ErrInvalidAction{Reason: "another request is in flight"}
	}
	o.inFlight = true
	// A reset supersedes whatever the state machine was doing, including
	// a scheduled opponent move.
	o.cancelOpponentTimerLocked()
	o.setStateLocked(StateIdle)
	ctx := o.ctx
	o.mu.Unlock()

	sessionID := gameData.SessionID
	go func() {
		defer func() {
			o.mu.Lock()
			o.inFlight = false
			o.mu.Unlock()
		}()

		if err := o.sessionClient.ResetSession(ctx, sessionID, difficulty); err != nil {
			o.surfaceError(fmt.Errorf("failed to reset session: %v", err))
			return
		}

		newData, err := o.sessionClient.FetchSnapshot(ctx, &sessionID)
		if err != nil {
			o.surfaceError(fmt.Errorf("failed to fetch snapshot after reset: %v", err))
			return
		}

		// The post-reset fetch is fresher than anything issued before the
		// reset, so it replaces unconditionally. Responses for requests
		// issued against the pre-reset state are rejected by their own
		// version tags.
		o.gameStore.Replace(newData)
	}()

	return nil
}

// evaluate is run once per accepted store replacement and decides the
// next transition: wait for human input, schedule exactly one opponent
// move, or stop at a terminal snapshot.
func (o *TurnOrchestrator) evaluate(gameData *types.GameData, version uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ctx == nil || o.ctx.Err() != nil {
		return
	}

	o.persistSessionLocked(gameData)

	if gameData.GameOver() {
		if o.state != StateTerminal {
			log.Info("Game over: %s wins", *gameData.Winner)
		}
		o.cancelOpponentTimerLocked()
		o.setStateLocked(StateTerminal)
		return
	}

	if gameData.Turn == o.localPlayer {
		// A snapshot handing the turn back invalidates any opponent move
		// still waiting on its delay.
		o.cancelOpponentTimerLocked()
		o.setStateLocked(StateAwaitingHumanInput)
		return
	}

	switch o.state {
	case StateSchedulingOpponentMove, StateAwaitingOpponentMove:
		// At most one outstanding opponent move per session. Redundant
		// re-notifications must not schedule a second one.
		log.Trace("Opponent move already pending, ignoring re-evaluation")
		return
	}

	o.scheduleOpponentMoveLocked(gameData.SessionID, version)
}

func (o *TurnOrchestrator) scheduleOpponentMoveLocked(sessionID uuid.UUID, version uint64) {
	o.setStateLocked(StateSchedulingOpponentMove)
	o.opponentTimer = time.AfterFunc(o.opponentMoveDelay, func() {
		o.performOpponentMove(sessionID, version)
	})
}

func (o *TurnOrchestrator) performOpponentMove(sessionID uuid.UUID, version uint64) {
	o.mu.Lock()
	if o.ctx == nil || o.ctx.Err() != nil || o.state != StateSchedulingOpponentMove {
		o.mu.Unlock()
		return
	}
	o.opponentTimer = nil
	o.setStateLocked(StateAwaitingOpponentMove)
	ctx := o.ctx
	o.mu.Unlock()

	opponent := o.localPlayer.Opponent()
	var newData *types.GameData
	var err error
	backoff := o.opponentMoveBackoff
	for attempt := 1; attempt <= o.maxOpponentMoveAttempts; attempt++ {
		newData, err = o.sessionClient.SubmitMove(ctx, sessionID, opponent, OpponentPlaceholderPit)
		if err == nil {
			break
		}
		log.Warn("Opponent move attempt %d/%d failed: %v", attempt, o.maxOpponentMoveAttempts, err)
		if attempt == o.maxOpponentMoveAttempts {
			break
		}
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			o.releaseOpponentGuard()
			return
		}
	}

	// Release the guard before reconciling so the evaluation triggered
	// by the replacement can schedule the next move.
	o.releaseOpponentGuard()

	if err != nil {
		o.surfaceError(fmt.Errorf("opponent move failed after %d attempts: %v", o.maxOpponentMoveAttempts, err))
		return
	}

	if _, ok := o.gameStore.ReplaceIf(version, newData); !ok {
		log.Warn("Discarding stale opponent move response for session %s", sessionID)
		// The evaluation for whichever replacement won was a no-op while
		// the opponent guard was held, so re-run it now.
		if current, currentVersion, loaded := o.gameStore.Current(); loaded {
			o.evaluate(current, currentVersion)
		}
	}
}

func (o *TurnOrchestrator) releaseOpponentGuard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateAwaitingOpponentMove {
		o.setStateLocked(StateIdle)
	}
}

func (o *TurnOrchestrator) cancelOpponentTimerLocked() {
	if o.opponentTimer != nil {
		o.opponentTimer.Stop()
		o.opponentTimer = nil
	}
}

func (o *TurnOrchestrator) setStateLocked(state State) {
	if o.state == state {
		return
	}
	log.Trace("Orchestrator state: %s -> %s", o.state, state)
	o.state = state
}

// persistSessionLocked caches the session identity whenever it changes
// so a restarted client resumes the same server session.
func (o *TurnOrchestrator) persistSessionLocked(gameData *types.GameData) {
	if o.repository == nil {
		return
	}
	record := repositories.SessionRecord{
		SessionID:  gameData.SessionID,
		Difficulty: gameData.Difficulty,
	}
	if o.lastSaved != nil && *o.lastSaved == record {
		return
	}
	o.lastSaved = &record
	ctx := o.ctx
	go func() {
		if err := o.repository.SaveSession(ctx, record); err != nil {
			log.Warn("Failed to cache session: %v", err)
		}
	}()
}

func (o *TurnOrchestrator) surfaceError(err error) {
	log.Error("%v", err)
	select {
	case o.errChan <- err:
	default:
		log.Warn("Error channel full, dropping error")
	}
}
