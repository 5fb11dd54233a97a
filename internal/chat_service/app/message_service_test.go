package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/casafacile/golang_services/internal/chat_service/domain"
)

// --- Mocks ---

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID, offset, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, conversationID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Tests ---

func TestSendMessage_CleanContent(t *testing.T) {
	repo := new(MockMessageRepository)
	pub := new(MockPublisher)
	svc := NewMessageService(repo, pub, newTestLogger())

	conversationID := uuid.New()
	senderID := uuid.New()

	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil).Once()
	pub.On("Publish", mock.Anything, domain.MessageSubject(conversationID), mock.Anything).Return(nil).Once()

	msg, filtered, err := svc.SendMessage(context.Background(), conversationID, senderID, "ci vediamo domani alle 9")

	require.NoError(t, err)
	assert.False(t, filtered.IsBlocked)
	assert.Equal(t, "ci vediamo domani alle 9", msg.Content)
	assert.Equal(t, conversationID, msg.ConversationID)
	assert.Equal(t, senderID, msg.SenderID)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestSendMessage_RedactedContentPersistedSanitized(t *testing.T) {
	repo := new(MockMessageRepository)
	pub := new(MockPublisher)
	svc := NewMessageService(repo, pub, newTestLogger())

	conversationID := uuid.New()
	senderID := uuid.New()
	input := "chiama il 333 123 4567"

	var persisted *domain.Message
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Message")).
		Run(func(args mock.Arguments) {
			persisted = args.Get(1).(*domain.Message)
		}).Return(nil).Once()

	var published []byte
	pub.On("Publish", mock.Anything, domain.MessageSubject(conversationID), mock.Anything).
		Run(func(args mock.Arguments) {
			published = args.Get(2).([]byte)
		}).Return(nil).Once()

	msg, filtered, err := svc.SendMessage(context.Background(), conversationID, senderID, input)

	require.NoError(t, err)
	assert.True(t, filtered.IsBlocked)
	assert.Contains(t, filtered.BlockedReasons, domain.ReasonPhone)

	// The stored row keeps both versions; the fan-out event carries only the
	// sanitized text.
	require.NotNil(t, persisted)
	assert.Contains(t, persisted.Content, domain.PhonePlaceholder)
	assert.Equal(t, input, persisted.OriginalContent)

	var event domain.MessageEvent
	require.NoError(t, json.Unmarshal(published, &event))
	assert.Equal(t, msg.ID, event.MessageID)
	assert.NotContains(t, event.Content, "333")
	assert.Contains(t, event.Content, domain.PhonePlaceholder)
}

func TestSendMessage_EmptyContentRejected(t *testing.T) {
	repo := new(MockMessageRepository)
	pub := new(MockPublisher)
	svc := NewMessageService(repo, pub, newTestLogger())

	_, _, err := svc.SendMessage(context.Background(), uuid.New(), uuid.New(), "   \n\t ")

	assert.ErrorIs(t, err, domain.ErrEmptyContent)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSendMessage_PersistenceErrorPropagates(t *testing.T) {
	repo := new(MockMessageRepository)
	pub := new(MockPublisher)
	svc := NewMessageService(repo, pub, newTestLogger())

	dbErr := errors.New("connection reset")
	repo.On("Create", mock.Anything, mock.Anything).Return(dbErr).Once()

	_, _, err := svc.SendMessage(context.Background(), uuid.New(), uuid.New(), "ciao")

	assert.ErrorIs(t, err, dbErr)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessage_PublishFailureDoesNotFailSend(t *testing.T) {
	repo := new(MockMessageRepository)
	pub := new(MockPublisher)
	svc := NewMessageService(repo, pub, newTestLogger())

	repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("nats down")).Once()

	msg, _, err := svc.SendMessage(context.Background(), uuid.New(), uuid.New(), "ciao")

	require.NoError(t, err, "fan-out is best effort once the message is durable")
	assert.NotNil(t, msg)
}

func TestHistory_ClampsPaging(t *testing.T) {
	repo := new(MockMessageRepository)
	pub := new(MockPublisher)
	svc := NewMessageService(repo, pub, newTestLogger())

	conversationID := uuid.New()
	repo.On("ListByConversation", mock.Anything, conversationID, 0, 50).
		Return([]*domain.Message{}, nil).Once()

	_, err := svc.History(context.Background(), conversationID, -3, 5000)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}
