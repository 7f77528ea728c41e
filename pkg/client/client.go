package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sowandreap/kalaha/pkg/log"
	"github.com/sowandreap/kalaha/pkg/types"
)

const (
	DefaultServerURL      = "http://localhost:8000"
	DefaultRequestTimeout = 10 * time.Second
)

// SessionClient is the sole owner of wire communication with the game
// server. Every call returns either a snapshot or a classified failure
// and never touches client-side state.
type SessionClient interface {
	// FetchSnapshot requests the current session snapshot. When sessionID
	// is nil the server creates or resumes its most recent session.
	FetchSnapshot(ctx context.Context, sessionID *uuid.UUID) (*types.GameData, error)
	// SubmitMove requests that player sow the pit at pit and returns the
	// resulting snapshot. The returned snapshot is the only truth about
	// the move's outcome.
	SubmitMove(ctx context.Context, sessionID uuid.UUID, player types.PlayerType, pit int) (*types.GameData, error)
	// ResetSession requests a new game under the given difficulty for the
	// existing session. The server only acknowledges; callers must
	// re-fetch with the same session id.
	ResetSession(ctx context.Context, sessionID uuid.UUID, difficulty types.Difficulty) error
}

// HTTPSessionClient implements SessionClient over the server's HTTP API.
type HTTPSessionClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ SessionClient = (*HTTPSessionClient)(nil)

type NewHTTPSessionClientOptions struct {
	// BaseURL is the server base URL, without a trailing slash.
	BaseURL string
	// HTTPClient is used for all requests. A default client with
	// DefaultRequestTimeout is used when nil.
	HTTPClient *http.Client
}

func NewHTTPSessionClient(opts NewHTTPSessionClientOptions) *HTTPSessionClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultRequestTimeout}
	}
	return &HTTPSessionClient{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (c *HTTPSessionClient) FetchSnapshot(ctx context.Context, sessionID *uuid.UUID) (*types.GameData, error) {
	requestURL := c.baseURL
	if sessionID != nil {
		values := url.Values{}
		values.Set("sessionId", sessionID.String())
		requestURL = fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
	}

	log.Debug("Fetching snapshot from %s", requestURL)
	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	return decodeSnapshot(body)
}

func (c *HTTPSessionClient) SubmitMove(ctx context.Context, sessionID uuid.UUID, player types.PlayerType, pit int) (*types.GameData, error) {
	values := url.Values{}
	values.Set("userid", strconv.Itoa(int(player)))
	values.Set("sessionid", sessionID.String())
	values.Set("pit", strconv.Itoa(pit))
	requestURL := fmt.Sprintf("%s/select?%s", c.baseURL, values.Encode())

	log.Debug("Submitting move for player %d, pit %d", player, pit)
	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	return decodeSnapshot(body)
}

func (c *HTTPSessionClient) ResetSession(ctx context.Context, sessionID uuid.UUID, difficulty types.Difficulty) error {
	values := url.Values{}
	values.Set("sessionid", sessionID.String())
	values.Set("difficulty", strconv.Itoa(int(difficulty)))
	requestURL := fmt.Sprintf("%s/reset?%s", c.baseURL, values.Encode())

	log.Debug("Resetting session %s with difficulty %s", sessionID, difficulty)
	// The reset response is an acknowledgement, not a snapshot.
	if _, err := c.get(ctx, requestURL); err != nil {
		return err
	}

	return nil
}

// get performs a GET request and returns the response body, classifying
// transport failures as ErrNetwork and non-success statuses as
// ErrProtocol.
func (c *HTTPSessionClient) get(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ErrNetwork{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ErrNetwork{Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &ErrProtocol{
			StatusCode: resp.StatusCode,
			Reason:     http.StatusText(resp.StatusCode),
		}
	}

	return body, nil
}

func decodeSnapshot(body []byte) (*types.GameData, error) {
	gameData := &types.GameData{}
	if err := json.Unmarshal(body, gameData); err != nil {
		return nil, &ErrProtocol{Reason: fmt.Sprintf("malformed snapshot: %v", err)}
	}
	if err := gameData.Validate(); err != nil {
		return nil, &ErrProtocol{Reason: fmt.Sprintf("invalid snapshot: %v", err)}
	}
	return gameData, nil
}
