package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"higress-chat/internal/application/port/input"
	"higress-chat/internal/application/port/output"
	"higress-chat/internal/domain/entity"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
)

const maxBodyBytes = 1 << 20

type Server struct {
	chat     input.ChatClient
	defaults entity.ChatOptions
	logger   output.LoggerPort
}

func NewServer(chat input.ChatClient, defaults entity.ChatOptions, logger output.LoggerPort) *Server {
	return &Server{chat: chat, defaults: defaults, logger: logger}
}

// Router serves POST /v1/chat (JSON) and POST /v1/chat/stream (SSE).
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(httplog.NewLogger("chatd", httplog.Options{JSON: true, Concise: true})))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/v1/chat", s.handleCall)
	r.Post("/v1/chat/stream", s.handleStream)
	return r
}

type chatRequest struct {
	System          string         `json:"system"`
	SystemParams    map[string]any `json:"system_params"`
	User            string         `json:"user"`
	Tools           []string       `json:"tools"`
	IncludeThinking bool           `json:"include_thinking"`

	Model          string         `json:"model"`
	Temperature    *float32       `json:"temperature"`
	MaxTokens      *int           `json:"max_tokens"`
	EnableThinking *bool          `json:"enable_thinking"`
	EnableSearch   *bool          `json:"enable_search"`
	Extra          map[string]any `json:"extra"`
}

// prompt applies the request's option overrides on top of the server
// defaults.
func (s *Server) prompt(req chatRequest) input.Prompt {
	b := s.defaults.ToBuilder()
	if req.Model != "" {
		b.Model(req.Model)
	}
	if req.Temperature != nil {
		b.Temperature(*req.Temperature)
	}
	if req.MaxTokens != nil {
		b.MaxTokens(*req.MaxTokens)
	}
	if req.EnableThinking != nil {
		b.EnableThinking(*req.EnableThinking)
	}
	if req.EnableSearch != nil {
		b.EnableSearch(*req.EnableSearch)
	}
	if len(req.Extra) > 0 {
		b.ExtraBody(req.Extra)
	}
	opts := b.Build()

	return input.Prompt{
		System:          req.System,
		SystemParams:    req.SystemParams,
		User:            req.User,
		Options:         &opts,
		Tools:           req.Tools,
		IncludeThinking: req.IncludeThinking,
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (chatRequest, error) {
	var req chatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	if req.User == "" {
		return req, errors.New("user prompt is required")
	}
	return req, nil
}

type toolResultJSON struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error"`
}

func toResultJSON(r entity.ToolResult) toolResultJSON {
	return toolResultJSON{CallID: r.CallID, Name: r.Name, Content: r.Content, IsError: r.IsError}
}

type callResponse struct {
	ConversationID string           `json:"conversation_id"`
	Content        string           `json:"content"`
	Reasoning      string           `json:"reasoning,omitempty"`
	Invocations    []toolResultJSON `json:"invocations"`
	Rounds         int              `json:"rounds"`
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := s.chat.Call(r.Context(), s.prompt(req))
	if err != nil {
		s.logger.Error("Chat call failed", "error", err)
		writeError(w, statusFor(err), err)
		return
	}

	out := callResponse{
		ConversationID: resp.ConversationID,
		Content:        resp.Content,
		Reasoning:      resp.Reasoning,
		Invocations:    make([]toolResultJSON, 0, len(resp.Invocations)),
		Rounds:         resp.Rounds,
	}
	for _, inv := range resp.Invocations {
		out.Invocations = append(out.Invocations, toResultJSON(inv))
	}
	writeJSON(w, http.StatusOK, out)
}

type eventJSON struct {
	Kind     string          `json:"kind"`
	Text     string          `json:"text,omitempty"`
	Tagged   string          `json:"tagged,omitempty"`
	ToolCall *toolCallJSON   `json:"tool_call,omitempty"`
	Result   *toolResultJSON `json:"result,omitempty"`
}

type toolCallJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func toEventJSON(ev entity.Event) eventJSON {
	out := eventJSON{Kind: ev.Kind.String(), Text: ev.Text, Tagged: ev.Tagged()}
	if ev.ToolCall != nil {
		out.ToolCall = &toolCallJSON{ID: ev.ToolCall.ID, Name: ev.ToolCall.Name, Arguments: ev.ToolCall.Arguments}
	}
	if ev.Result != nil {
		res := toResultJSON(*ev.Result)
		out.Result = &res
	}
	return out
}

// handleStream writes one SSE frame per event, an "error" frame if the
// conversation fails and a final [DONE] marker.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sse := newSSEWriter(w)
	start := time.Now()
	count := 0

	for ev, err := range s.chat.Stream(r.Context(), s.prompt(req)) {
		if err != nil {
			s.logger.Error("Chat stream failed", "error", err, "events", count)
			sse.send("error", map[string]string{"error": err.Error()})
			break
		}
		if err := sse.send(ev.Kind.String(), toEventJSON(ev)); err != nil {
			s.logger.Warn("Client went away", "error", err, "events", count)
			return
		}
		count++
	}

	sse.done()
	s.logger.Debug("Chat stream finished", "events", count, "duration", time.Since(start))
}

func statusFor(err error) int {
	var invalid *entity.InvalidOptionsError
	var unknown *entity.UnknownToolError
	switch {
	case errors.As(err, &invalid), errors.As(err, &unknown):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
