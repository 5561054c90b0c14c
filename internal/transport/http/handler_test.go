package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quitz-service/internal/app"
	"quitz-service/internal/domain"
	"quitz-service/internal/infra/memory"
)

func TestChoiceQuestionExample(t *testing.T) {
	server, store := newTestServer(t, nil)

	status, id := do(t, http.MethodPost, server.URL+"/postques", `{"q":"pick one","c":["a","b"]}`)
	if status != http.StatusOK || id == "" {
		t.Fatalf("create: status=%d body=%q", status, id)
	}
	assertTallies(t, store, id, 0, 0)

	if status, _ := do(t, http.MethodGet, server.URL+"/postans/1/"+id, ""); status != http.StatusOK {
		t.Fatalf("expected 200 for answer 1, got %d", status)
	}
	assertTallies(t, store, id, 0, 1)

	if status, _ := do(t, http.MethodGet, server.URL+"/postans/5/"+id, ""); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for answer 5, got %d", status)
	}
	assertTallies(t, store, id, 0, 1)
}

func TestPostQuestionValidation(t *testing.T) {
	server, _ := newTestServer(t, nil)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"multi", `{"mc":["a","b","c"]}`, http.StatusOK},
		{"no options", `{"q":"hello"}`, http.StatusBadRequest},
		{"too many options", `{"c":["1","2","3","4","5","6","7","8","9"]}`, http.StatusBadRequest},
		{"long text", `{"q":"` + strings.Repeat("x", domain.MaxTextLen+1) + `","c":["a"]}`, http.StatusBadRequest},
		{"not json", `{`, http.StatusBadRequest},
		{"options not array", `{"c":"a"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if status, body := do(t, http.MethodPost, server.URL+"/postques", tc.body); status != tc.want {
				t.Fatalf("expected %d, got %d (%s)", tc.want, status, body)
			}
		})
	}
}

func TestTextQuestionAndAnswers(t *testing.T) {
	server, store := newTestServer(t, nil)

	status, id := do(t, http.MethodGet, server.URL+"/postques/why%20so", "")
	if status != http.StatusOK {
		t.Fatalf("create text: %d", status)
	}
	for _, answer := range []string{"because", "dunno"} {
		if status, _ := do(t, http.MethodGet, server.URL+"/postans/"+answer+"/"+id, ""); status != http.StatusOK {
			t.Fatalf("answer %q: %d", answer, status)
		}
	}
	long := strings.Repeat("y", domain.MaxTextLen+1)
	if status, _ := do(t, http.MethodGet, server.URL+"/postans/"+long+"/"+id, ""); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for long answer, got %d", status)
	}

	q, err := store.FindOne(context.Background(), id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if q.Text != "why so" || len(q.Answers) != 2 || q.Answers[1] != "dunno" {
		t.Fatalf("unexpected question %+v", q)
	}

	long = strings.Repeat("z", domain.MaxTextLen+1)
	if status, _ := do(t, http.MethodGet, server.URL+"/postques/"+long, ""); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for long question, got %d", status)
	}
}

func TestAnswerUnknownQuestion(t *testing.T) {
	server, _ := newTestServer(t, nil)
	if status, _ := do(t, http.MethodGet, server.URL+"/postans/0/missing", ""); status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestGetQuestionsClamps(t *testing.T) {
	server, store := newTestServer(t, nil)
	for i := 0; i < domain.MaxSampleLen+5; i++ {
		_, _ = store.Insert(context.Background(), domain.NewTextQuestion("q"))
	}

	cases := []struct {
		path string
		want int
	}{
		{"/getques/0", 0},
		{"/getques/3", 3},
		{"/getques/500", domain.MaxSampleLen},
	}
	for _, tc := range cases {
		status, body := do(t, http.MethodGet, server.URL+tc.path, "")
		if status != http.StatusOK {
			t.Fatalf("%s: status %d", tc.path, status)
		}
		var got []map[string]any
		if err := json.Unmarshal([]byte(body), &got); err != nil {
			t.Fatalf("%s: decode %q: %v", tc.path, body, err)
		}
		if len(got) != tc.want {
			t.Fatalf("%s: expected %d questions, got %d", tc.path, tc.want, len(got))
		}
	}

	if status, _ := do(t, http.MethodGet, server.URL+"/getques/abc", ""); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric len, got %d", status)
	}
}

func TestLookupReturnsFoundSubset(t *testing.T) {
	server, store := newTestServer(t, nil)
	id, _ := store.Insert(context.Background(), domain.NewChoiceQuestion(domain.KindChoice, "pick", []string{"a"}))

	status, body := do(t, http.MethodPost, server.URL+"/ques", `["nope","`+id+`"]`)
	if status != http.StatusOK {
		t.Fatalf("lookup: %d %s", status, body)
	}
	var got []map[string]any
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0]["_id"] != id {
		t.Fatalf("expected only %s, got %s", id, body)
	}

	if status, _ := do(t, http.MethodPost, server.URL+"/ques", `{"ids":1}`); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", status)
	}
}

func TestRootEchoesClientAddress(t *testing.T) {
	server, _ := newTestServer(t, nil)

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `I know your ip "203.0.113.7"` {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestRateLimitRejects(t *testing.T) {
	server, _ := newTestServer(t, memory.NewRateLimiter(0, 2))

	for i := 0; i < 2; i++ {
		if status, _ := do(t, http.MethodGet, server.URL+"/healthz", ""); status != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, status)
		}
	}
	if status, _ := do(t, http.MethodGet, server.URL+"/healthz", ""); status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", status)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	rec := httptest.NewRecorder()
	RateLimit(brokenLimiter{}, next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected request through, got %d", rec.Code)
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) {
	return false, io.ErrUnexpectedEOF
}

func newTestServer(t *testing.T, limiter Limiter) (*httptest.Server, *memory.QuestionStore) {
	t.Helper()
	store := memory.NewQuestionStore()
	questions := app.NewQuestionService(store, app.NewFeed(), domain.MaxSampleLen)
	sampler := app.NewSampler(store, nil, domain.MaxSampleLen, app.DefaultHitRatio)
	server := httptest.NewServer(NewRouter(NewHandler(questions, sampler), NewWSHandler(questions), limiter))
	t.Cleanup(server.Close)
	return server, store
}

func do(t *testing.T, method, url, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data)
}

func assertTallies(t *testing.T, store *memory.QuestionStore, id string, want ...int64) {
	t.Helper()
	q, err := store.FindOne(context.Background(), id)
	if err != nil {
		t.Fatalf("find %s: %v", id, err)
	}
	if len(q.Tallies) != len(want) {
		t.Fatalf("expected %d tallies, got %v", len(want), q.Tallies)
	}
	for i := range want {
		if q.Tallies[i] != want[i] {
			t.Fatalf("expected tallies %v, got %v", want, q.Tallies)
		}
	}
}
