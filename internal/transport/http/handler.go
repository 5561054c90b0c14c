package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"quitz-service/internal/app"
	"quitz-service/internal/domain"
)

// maxBodyBytes bounds creation and lookup payloads.
const maxBodyBytes = 64 << 10

// Handler serves the question and answer endpoints.
type Handler struct {
	questions *app.QuestionService
	sampler   *app.Sampler
}

func NewHandler(questions *app.QuestionService, sampler *app.Sampler) *Handler {
	return &Handler{questions: questions, sampler: sampler}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.root)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /getques/{len}", h.getQuestions)
	mux.HandleFunc("POST /ques", h.lookupQuestions)
	mux.HandleFunc("POST /postques", h.postQuestion)
	mux.HandleFunc("GET /postques/{text}", h.textQuestion)
	mux.HandleFunc("GET /postans/{answer}/{id}", h.postAnswer)
}

// NewRouter wires the REST and websocket routes behind request logging and
// rate limiting. limiter may be nil.
func NewRouter(h *Handler, ws *WSHandler, limiter Limiter) http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /watch/{id}", ws.ServeWS)
	return LogRequests(RateLimit(limiter, mux))
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "I know your ip %q", ClientIP(r))
}

func (h *Handler) getQuestions(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.ParseUint(r.PathValue("len"), 10, 32)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %q", domain.ErrInvalidLength, r.PathValue("len")))
		return
	}
	if n > math.MaxInt32 {
		n = math.MaxInt32
	}
	body, err := h.sampler.Sample(r.Context(), int(n))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONBytes(w, body)
}

func (h *Handler) lookupQuestions(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&ids); err != nil {
		writeError(w, fmt.Errorf("%w: body must be an array of ids", domain.ErrInvalidID))
		return
	}
	questions, err := h.questions.Lookup(r.Context(), ids)
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := json.Marshal(questions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONBytes(w, body)
}

func (h *Handler) postQuestion(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidQuestion, err))
		return
	}
	id, err := h.questions.CreateChoice(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Write([]byte(id))
}

func (h *Handler) textQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := h.questions.CreateText(r.Context(), r.PathValue("text"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Write([]byte(id))
}

func (h *Handler) postAnswer(w http.ResponseWriter, r *http.Request) {
	if _, err := h.questions.SubmitAnswer(r.Context(), r.PathValue("answer"), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeJSONBytes(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// statusFor maps use-case errors onto response codes: not found is 404,
// other client errors 400, everything else 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrQuestionNotFound):
		return http.StatusNotFound
	case domain.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Error(w, err.Error(), status)
}
