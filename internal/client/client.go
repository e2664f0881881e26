// Package client is the HTTP consumer of the mock-test API. It satisfies
// session.Persister, so a session.Session can run against a remote server
// exactly the way the web exam interface does: cookie-based credentials,
// JSON bodies, no custom auth headers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pyqprep/mocktest-backend/internal/model"
	"github.com/rs/zerolog"
)

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Client talks to one mock-test backend with a shared cookie session.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New creates a Client for the given base URL (e.g. "http://localhost:8080").
func New(baseURL string, log zerolog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
		},
		log: log.With().Str("component", "api_client").Logger(),
	}, nil
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Login authenticates and stores the session cookie on the client's jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body := model.LoginRequest{Email: email, Password: password}
	return c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, nil)
}

// ListSets returns the available mock exam sets.
func (c *Client) ListSets(ctx context.Context) ([]model.ExamSet, error) {
	var out struct {
		ExamSets []model.ExamSet `json:"exam_sets"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/exam/sets", nil, &out); err != nil {
		return nil, err
	}
	return out.ExamSets, nil
}

// StartAttempt creates or resumes the caller's attempt on a set.
func (c *Client) StartAttempt(ctx context.Context, setID uuid.UUID) (*model.Attempt, error) {
	var out struct {
		Attempt model.Attempt `json:"attempt"`
	}
	path := "/api/v1/exam/sets/" + setID.String() + "/start"
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Attempt, nil
}

// FetchAttempt retrieves the attempt snapshot that seeds a session.
func (c *Client) FetchAttempt(ctx context.Context, attemptID uuid.UUID) (*model.AttemptSnapshot, error) {
	var out struct {
		Attempt model.AttemptSnapshot `json:"attempt"`
	}
	path := "/api/v1/exam/attempt/" + attemptID.String()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Attempt, nil
}

// SaveAnswer upserts one question's response. A nil selected option is sent
// as an explicit JSON null, which clears the answer server-side.
func (c *Client) SaveAnswer(ctx context.Context, attemptID, questionID uuid.UUID, selected *string, marked bool) error {
	body := model.SaveAnswerRequest{
		QuestionID:        questionID,
		SelectedOption:    selected,
		IsMarkedForReview: marked,
	}
	path := "/api/v1/exam/attempt/" + attemptID.String() + "/answer"
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// MarkReview persists the marked-for-review flag. The contract carries both
// values in the query string.
func (c *Client) MarkReview(ctx context.Context, attemptID, questionID uuid.UUID, marked bool) error {
	q := url.Values{}
	q.Set("question_id", questionID.String())
	q.Set("is_marked", fmt.Sprintf("%t", marked))
	path := "/api/v1/exam/attempt/" + attemptID.String() + "/mark-review?" + q.Encode()
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// Submit finalizes the attempt.
func (c *Client) Submit(ctx context.Context, attemptID uuid.UUID) error {
	path := "/api/v1/exam/attempt/" + attemptID.String() + "/submit"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// Results fetches the attempt's result summary.
func (c *Client) Results(ctx context.Context, attemptID uuid.UUID) (*model.AttemptResult, error) {
	var out struct {
		Result model.AttemptResult `json:"result"`
	}
	path := "/api/v1/exam/attempt/" + attemptID.String() + "/results"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: "UNKNOWN", Message: resp.Status}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
