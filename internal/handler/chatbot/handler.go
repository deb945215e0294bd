package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/pawshop/internal/model/chat"
	"github.com/zhouzirui/pawshop/internal/service/assistant"
	chatbotService "github.com/zhouzirui/pawshop/internal/service/chatbot"
	sessionService "github.com/zhouzirui/pawshop/internal/service/session"
	"github.com/zhouzirui/pawshop/pkg/utils"
)

const maxQuestionLength = 2000

// Answerer 生成问题的回复
type Answerer interface {
	Answer(ctx context.Context, history []chat.HistoryItem, question string) (assistant.Answer, error)
}

// Handler 聊天机器人问答接口的HTTP处理器
type Handler struct {
	answerer   Answerer
	sessionSvc *sessionService.Service
	limiter    func(http.Handler) http.Handler
}

// New 创建聊天机器人处理器。limiter 为空时不限流。
func New(answerer Answerer, sessionSvc *sessionService.Service, limiter func(http.Handler) http.Handler) *Handler {
	return &Handler{
		answerer:   answerer,
		sessionSvc: sessionSvc,
		limiter:    limiter,
	}
}

// RegisterRoutes 注册聊天机器人相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chatbot", func(cr chi.Router) {
		if h.limiter != nil {
			cr.With(h.limiter).Post("/ask", h.handleAsk)
		} else {
			cr.Post("/ask", h.handleAsk)
		}
		cr.Get("/sessions/{sessionID}/transcript", h.handleTranscript)
	})
}

// handleAsk 回答一个问题
func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var payload chat.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Ask(r.Context(), payload)
	if err != nil {
		var apiErr *chatbotService.APIError
		if !errors.As(err, &apiErr) {
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if apiErr.StatusCode == http.StatusBadRequest {
			utils.RespondMessage(w, apiErr.StatusCode, apiErr.Message)
			return
		}
		utils.RespondError(w, apiErr.StatusCode, apiErr.Message)
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

// Ask 校验问题、解析会话并生成回复。失败时返回带状态码的 *chatbot.APIError，
// 因此也可以直接作为进程内的 chatbot.Endpoint 使用。
func (h *Handler) Ask(ctx context.Context, payload chat.AskRequest) (chat.AskResponse, error) {
	question := strings.TrimSpace(payload.Question)
	if question == "" {
		return chat.AskResponse{}, badRequest("Please type a question first.")
	}
	if len(question) > maxQuestionLength {
		return chat.AskResponse{}, badRequest("That message is too long. Please keep it under 2000 characters.")
	}
	for _, item := range payload.History {
		if !item.Role.Valid() {
			return chat.AskResponse{}, badRequest("invalid history role")
		}
	}

	session, err := h.sessionSvc.Resolve(ctx, payload.SessionID)
	if err != nil {
		return chat.AskResponse{}, &chatbotService.APIError{StatusCode: http.StatusInternalServerError, Message: "failed to open session", Err: err}
	}

	answer, err := h.answerer.Answer(ctx, payload.History, question)
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyQuestion) {
			return chat.AskResponse{}, badRequest("Please type a question first.")
		}
		log.Printf("[chatbot] answer failed for session=%s: %v", session.ID, err)
		return chat.AskResponse{}, &chatbotService.APIError{
			StatusCode: http.StatusBadGateway,
			Message:    "The assistant is unavailable right now. Please try again shortly.",
			Err:        err,
		}
	}

	h.record(ctx, session.ID, question, answer)

	contextJSON, err := json.Marshal(answer.Context)
	if err != nil {
		log.Printf("[chatbot] failed to encode answer context: %v", err)
		contextJSON = nil
	}

	return chat.AskResponse{
		SessionID: session.ID,
		Answer:    answer.Text,
		Context:   contextJSON,
	}, nil
}

func badRequest(message string) error {
	return &chatbotService.APIError{StatusCode: http.StatusBadRequest, Message: message}
}

// handleTranscript 返回服务端记录的会话内容
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	turns, err := h.sessionSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sessionService.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		utils.RespondError(w, status, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, turns)
}

func (h *Handler) record(ctx context.Context, sessionID, question string, answer assistant.Answer) {
	turns := []chat.Turn{
		{SessionID: sessionID, Role: chat.RoleUser, Content: question, Topic: string(answer.Context.Topic)},
		{SessionID: sessionID, Role: chat.RoleAssistant, Content: answer.Text, Topic: string(answer.Context.Topic)},
	}
	for _, turn := range turns {
		if err := h.sessionSvc.SaveMessage(ctx, turn); err != nil {
			log.Printf("[chatbot] failed to record turn for session=%s: %v", sessionID, err)
			return
		}
	}
}
