package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	chatapp "github.com/casafacile/golang_services/internal/chat_service/app"
	chatdomain "github.com/casafacile/golang_services/internal/chat_service/domain"
	"github.com/casafacile/golang_services/internal/public_api_service/middleware"
)

// ChatService is the slice of the chat application layer the handler needs.
type ChatService interface {
	SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*chatdomain.Message, chatdomain.ContentFilterResult, error)
	History(ctx context.Context, conversationID uuid.UUID, offset, limit int) ([]*chatdomain.Message, error)
}

var _ ChatService = (*chatapp.MessageService)(nil)

// MessageHandler handles HTTP requests for conversation messages.
type MessageHandler struct {
	chatService ChatService
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(chatService ChatService, validate *validator.Validate, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		chatService: chatService,
		validate:    validate,
		logger:      logger.With("handler", "message"),
	}
}

// RegisterRoutes registers message routes with the given router.
func (h *MessageHandler) RegisterRoutes(r chi.Router) {
	r.Post("/conversations/{conversationID}/messages", h.handleSendMessage)
	r.Get("/conversations/{conversationID}/messages", h.handleListMessages)
}

func (h *MessageHandler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	authUser, ok := ctx.Value(middleware.AuthenticatedUserContextKey).(middleware.AuthenticatedUser)
	if !ok {
		logger.WarnContext(ctx, "User not authenticated for send message")
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid conversation ID format")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "Failed to decode send message request", "error", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	msg, _, err := h.chatService.SendMessage(ctx, conversationID, authUser.ID, req.Content)
	if err != nil {
		if errors.Is(err, chatdomain.ErrEmptyContent) {
			respondWithError(w, http.StatusBadRequest, "Message content is empty")
			return
		}
		logger.ErrorContext(ctx, "Failed to send message", "error", err, "conversation_id", conversationID)
		respondWithError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	respondWithJSON(w, http.StatusCreated, toMessageResponse(msg))
}

func (h *MessageHandler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	if _, ok := ctx.Value(middleware.AuthenticatedUserContextKey).(middleware.AuthenticatedUser); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid conversation ID format")
		return
	}

	offset := parseIntQuery(r, "offset", 0)
	limit := parseIntQuery(r, "limit", 50)

	messages, err := h.chatService.History(ctx, conversationID, offset, limit)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to fetch conversation history", "error", err, "conversation_id", conversationID)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}

	out := MessageListResponse{
		Messages: make([]MessageResponse, 0, len(messages)),
		Offset:   offset,
		Limit:    limit,
	}
	for _, msg := range messages {
		out.Messages = append(out.Messages, toMessageResponse(msg))
	}
	respondWithJSON(w, http.StatusOK, out)
}

func parseIntQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// Helper to respond with JSON
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Default().Error("Failed to write JSON response", "error", err)
		}
	}
}

// Helper to respond with an error
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, GenericErrorResponse{Error: message})
}
