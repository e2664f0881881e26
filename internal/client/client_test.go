package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func okEnvelope(data string) string {
	return `{"data":` + data + `,"metadata":{"request_id":"t","timestamp":"t"}}`
}

func TestSaveAnswerSerializesNullClear(t *testing.T) {
	var got map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Errorf("bad body: %v", err)
		}
		io.WriteString(w, okEnvelope(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	attemptID, questionID := uuid.New(), uuid.New()
	if err := c.SaveAnswer(context.Background(), attemptID, questionID, nil, true); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}

	// selected_option must be present and explicitly null.
	raw, ok := got["selected_option"]
	if !ok {
		t.Fatal("selected_option missing from payload")
	}
	if string(raw) != "null" {
		t.Fatalf("selected_option = %s, want null", raw)
	}
	if string(got["is_marked_for_review"]) != "true" {
		t.Fatalf("is_marked_for_review = %s, want true", got["is_marked_for_review"])
	}
}

func TestMarkReviewUsesQueryParams(t *testing.T) {
	questionID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if q := r.URL.Query(); q.Get("question_id") != questionID.String() || q.Get("is_marked") != "true" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		io.WriteString(w, okEnvelope(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, zerolog.Nop())
	if err := c.MarkReview(context.Background(), uuid.New(), questionID, true); err != nil {
		t.Fatalf("MarkReview: %v", err)
	}
}

func TestSessionCookiePersistsAcrossCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "pyq_session", Value: "tok", Path: "/"})
			io.WriteString(w, okEnvelope(`{"user":{"id":1}}`))
		default:
			cookie, err := r.Cookie("pyq_session")
			if err != nil || cookie.Value != "tok" {
				t.Errorf("missing session cookie on %s", r.URL.Path)
			}
			if r.Header.Get("Authorization") != "" {
				t.Error("unexpected Authorization header")
			}
			io.WriteString(w, okEnvelope(`{"exam_sets":[]}`))
		}
	}))
	defer srv.Close()

	c, _ := New(srv.URL, zerolog.Nop())
	ctx := context.Background()
	if err := c.Login(ctx, "a@b.c", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := c.ListSets(ctx); err != nil {
		t.Fatalf("ListSets: %v", err)
	}
}

func TestErrorEnvelopeBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"data":null,"error":{"code":"ATTEMPT_ALREADY_SUBMITTED","message":"done"},"metadata":{}}`)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, zerolog.Nop())
	err := c.Submit(context.Background(), uuid.New())
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type %T, want *APIError", err)
	}
	if apiErr.Code != "ATTEMPT_ALREADY_SUBMITTED" || apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("unexpected apiErr: %+v", apiErr)
	}
}
