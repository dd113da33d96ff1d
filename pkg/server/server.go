// Package server exposes the career coach over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lexlapax/careercoach/pkg/coach"
	"github.com/lexlapax/careercoach/pkg/entity"
	"github.com/lexlapax/careercoach/pkg/log"
)

const (
	maxBodyBytes        = 1 << 20
	defaultMemoryLimit  = 10
	maxMemoryLimit      = 100
	defaultHTTPTimeout  = 120 * time.Second
	statusUnprocessable = http.StatusUnprocessableEntity
)

// Deps holds the dependencies for the HTTP handler.
type Deps struct {
	Coach coach.Coach

	// RequestTimeout bounds each request. Zero uses two minutes.
	RequestTimeout time.Duration
}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	LinkedInURL    string `json:"linkedin_url"`
	TargetJobTitle string `json:"target_job_title,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ChatResponse is the reply to POST /chat.
type ChatResponse struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// Memory is one remembered interaction as listed by the memories endpoint.
type Memory struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"text"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}

// MemoriesResponse is the reply to GET /users/{userID}/memories.
type MemoriesResponse struct {
	UserID   string   `json:"user_id"`
	Memories []Memory `json:"memories"`
}

// NewHandler returns the HTTP handler serving the coach API.
func NewHandler(deps Deps) http.Handler {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handleHealth)
	r.Post("/analyze", handleAnalyze(deps))
	r.Post("/chat", handleChat(deps))
	r.Get("/users/{userID}/memories", handleMemories(deps))

	return r
}

// requestLogger stores a request-scoped logger in the context and logs
// completed requests.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		logger := log.FromContext(r.Context()).With(
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
		)
		ctx := log.WithLogger(r.Context(), logger)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.Info("Request completed",
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleAnalyze(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnalyzeRequest
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, statusUnprocessable, "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.LinkedInURL) == "" {
			httpError(w, statusUnprocessable, "linkedin_url is required")
			return
		}

		ctx := withUser(r, req.UserID)
		result, err := deps.Coach.Analyze(ctx, coach.AnalyzeRequest{
			URL:       strings.TrimSpace(req.LinkedInURL),
			TargetJob: req.TargetJobTitle,
			UserID:    req.UserID,
		})
		if err != nil {
			log.FromContext(ctx).Error("Analysis failed", "error", err)
			var coachErr *coach.Error
			if errors.As(err, &coachErr) {
				httpError(w, http.StatusInternalServerError, "%s", coachErr.Error())
				return
			}
			httpError(w, http.StatusInternalServerError, "analysis failed: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, statusUnprocessable, "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.UserID) == "" {
			httpError(w, statusUnprocessable, "user_id is required")
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			httpError(w, statusUnprocessable, "message is required")
			return
		}

		ctx := withUser(r, req.UserID)
		reply := deps.Coach.Chat(ctx, req.UserID, req.Message)
		writeJSON(w, http.StatusOK, ChatResponse{UserID: req.UserID, Message: reply})
	}
}

func handleMemories(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		limit := defaultMemoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				httpError(w, statusUnprocessable, "limit must be a positive integer")
				return
			}
			limit = min(n, maxMemoryLimit)
		}

		ctx := withUser(r, userID)
		records, err := deps.Coach.Memories(ctx, entity.ResolveUserID(userID), limit)
		if err != nil {
			log.FromContext(ctx).Error("Listing memories failed", "error", err)
			httpError(w, http.StatusInternalServerError, "listing memories failed: %v", err)
			return
		}

		resp := MemoriesResponse{
			UserID:   entity.ResolveUserID(userID),
			Memories: make([]Memory, 0, len(records)),
		}
		for _, rec := range records {
			resp.Memories = append(resp.Memories, Memory{
				ID:        rec.ID,
				Text:      rec.Content,
				Metadata:  rec.Metadata,
				CreatedAt: rec.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// withUser attaches the entity context and a user-scoped logger. The request
// ID is already on the logger, so only the user is added.
func withUser(r *http.Request, userID string) context.Context {
	entityCtx := entity.NewContext(userID, middleware.GetReqID(r.Context()))
	ctx := entity.ContextWithEntity(r.Context(), entityCtx)
	logger := log.WithEntityContext(log.FromContext(ctx), entity.Context{UserID: entityCtx.UserID})
	return log.WithLogger(ctx, logger)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("Failed to encode response", "error", err)
	}
}

// httpError writes a {"detail": ...} error body.
func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"detail": fmt.Sprintf(format, args...)})
}
