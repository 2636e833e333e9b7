package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"messaging-service/internal/adapter/gin/middleware"
	"messaging-service/internal/domain/chat"
	"messaging-service/internal/usecase/auth"
	"messaging-service/internal/usecase/message"
	"messaging-service/internal/usecase/user"
	apperrors "messaging-service/pkg/errors"
)

// MockUserService is a mock implementation of UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, in user.RegisterRequest) (*chat.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.User), args.Error(1)
}

func (m *MockUserService) Me(ctx context.Context, caller *chat.User) (*chat.User, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context, caller *chat.User) ([]chat.User, error) {
	args := m.Called(ctx, caller)
	return args.Get(0).([]chat.User), args.Error(1)
}

func (m *MockUserService) Get(ctx context.Context, caller *chat.User, id string) (*chat.User, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, caller *chat.User, id string, in user.UpdateRequest) (*chat.User, error) {
	args := m.Called(ctx, caller, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.User), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, caller *chat.User, id string) error {
	return m.Called(ctx, caller, id).Error(0)
}

func (m *MockUserService) Search(ctx context.Context, caller *chat.User, q string) ([]chat.User, error) {
	args := m.Called(ctx, caller, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]chat.User), args.Error(1)
}

// MockTokenService is a mock implementation of TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Login(ctx context.Context, email, password string) (*auth.TokenPair, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenPair), args.Error(1)
}

func (m *MockTokenService) Refresh(ctx context.Context, refresh string) (string, error) {
	args := m.Called(ctx, refresh)
	return args.String(0), args.Error(1)
}

// MockMessageService is a mock implementation of MessageService
type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) List(ctx context.Context, caller *chat.User, f chat.MessageFilter) (*message.ListResult, error) {
	args := m.Called(ctx, caller, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*message.ListResult), args.Error(1)
}

func (m *MockMessageService) Send(ctx context.Context, caller *chat.User, convID, body string) (*chat.Message, error) {
	args := m.Called(ctx, caller, convID, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.Message), args.Error(1)
}

func (m *MockMessageService) Get(ctx context.Context, caller *chat.User, id string) (*chat.Message, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.Message), args.Error(1)
}

func (m *MockMessageService) Update(ctx context.Context, caller *chat.User, id, body string) (*chat.Message, error) {
	args := m.Called(ctx, caller, id, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.Message), args.Error(1)
}

func (m *MockMessageService) Delete(ctx context.Context, caller *chat.User, id string) error {
	return m.Called(ctx, caller, id).Error(0)
}

var alice = &chat.User{
	ID:        "6f1c1c1e-0d5b-4a34-9a4e-1a1f6d1e0c01",
	FirstName: "Alice",
	LastName:  "Liddell",
	Email:     "alice@example.com",
	Role:      chat.RoleGuest,
	CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
}

// newEngine returns an engine whose requests are authenticated as alice.
func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetCurrentUser(c, alice)
		c.Next()
	})
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestUserHandler_Register(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(MockUserService)
		h := NewUserHandler(svc, zaptest.NewLogger(t))
		r := newEngine()
		r.POST("/users/", h.Register)

		in := user.RegisterRequest{FirstName: "Alice", LastName: "Liddell", Email: "alice@example.com", Password: "wonderland"}
		svc.On("Register", mock.Anything, in).Return(alice, nil)

		w := doJSON(t, r, http.MethodPost, "/users/", map[string]string{
			"first_name": "Alice", "last_name": "Liddell", "email": "alice@example.com", "password": "wonderland",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		got := decode[map[string]any](t, w)
		assert.Equal(t, alice.ID, got["user_id"])
		assert.Equal(t, "guest", got["role"])
		assert.NotContains(t, got, "password")
		assert.NotContains(t, got, "password_hash")
		svc.AssertExpectations(t)
	})

	t.Run("Duplicate", func(t *testing.T) {
		svc := new(MockUserService)
		h := NewUserHandler(svc, zaptest.NewLogger(t))
		r := newEngine()
		r.POST("/users/", h.Register)

		svc.On("Register", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewAlreadyExistsError("user", "user with this email already exists"))

		w := doJSON(t, r, http.MethodPost, "/users/", map[string]string{"email": "alice@example.com"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"detail":"user with this email already exists"}`, w.Body.String())
	})

	t.Run("Malformed body", func(t *testing.T) {
		svc := new(MockUserService)
		h := NewUserHandler(svc, zaptest.NewLogger(t))
		r := newEngine()
		r.POST("/users/", h.Register)

		req := httptest.NewRequest(http.MethodPost, "/users/", bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})
}

func TestUserHandler_Get(t *testing.T) {
	svc := new(MockUserService)
	h := NewUserHandler(svc, zaptest.NewLogger(t))
	r := newEngine()
	r.GET("/users/:id/", h.Get)

	other := uuid.NewString()
	svc.On("Get", mock.Anything, alice, alice.ID).Return(alice, nil)
	svc.On("Get", mock.Anything, alice, other).Return(nil, apperrors.NewNotFoundError("user", "user not found"))

	w := doJSON(t, r, http.MethodGet, "/users/"+alice.ID+"/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, alice.Email, decode[UserResponse](t, w).Email)

	w = doJSON(t, r, http.MethodGet, "/users/"+other+"/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/users/not-a-uuid/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"Not found."}`, w.Body.String())
	svc.AssertNumberOfCalls(t, "Get", 2)
}

func TestUserHandler_UpdatePartial(t *testing.T) {
	svc := new(MockUserService)
	h := NewUserHandler(svc, zaptest.NewLogger(t))
	r := newEngine()
	r.PATCH("/users/:id/", h.Update)

	first := "Alicia"
	updated := *alice
	updated.FirstName = first
	svc.On("Update", mock.Anything, alice, alice.ID, user.UpdateRequest{FirstName: &first}).Return(&updated, nil)

	w := doJSON(t, r, http.MethodPatch, "/users/"+alice.ID+"/", map[string]string{"first_name": first})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first, decode[UserResponse](t, w).FirstName)
	svc.AssertExpectations(t)
}

func TestUserHandler_DeleteOtherProfile(t *testing.T) {
	svc := new(MockUserService)
	h := NewUserHandler(svc, zaptest.NewLogger(t))
	r := newEngine()
	r.DELETE("/users/:id/", h.Delete)

	other := uuid.NewString()
	svc.On("Delete", mock.Anything, alice, other).Return(apperrors.NewNotFoundError("user", "user not found"))
	svc.On("Delete", mock.Anything, alice, alice.ID).Return(nil)

	w := doJSON(t, r, http.MethodDelete, "/users/"+other+"/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/users/"+alice.ID+"/", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUserHandler_SearchAndInternalError(t *testing.T) {
	svc := new(MockUserService)
	h := NewUserHandler(svc, zaptest.NewLogger(t))
	r := newEngine()
	r.GET("/users/search/", h.Search)

	svc.On("Search", mock.Anything, alice, "bo").Return([]chat.User{{ID: "b", Email: "bob@example.com"}}, nil)
	svc.On("Search", mock.Anything, alice, "x").Return(nil, apperrors.NewValidationError("", "Search query must be at least 2 characters."))
	svc.On("Search", mock.Anything, alice, "boom").Return(nil, apperrors.NewInternalError("db down", assert.AnError))

	w := doJSON(t, r, http.MethodGet, "/users/search/?q=bo", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]UserResponse](t, w), 1)

	w = doJSON(t, r, http.MethodGet, "/users/search/?q=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/users/search/?q=boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"An internal error occurred"}`, w.Body.String())
}

func TestAuthHandler(t *testing.T) {
	svc := new(MockTokenService)
	h := NewAuthHandler(svc, zaptest.NewLogger(t))
	r := newEngine()
	r.POST("/token/", h.ObtainToken)
	r.POST("/token/refresh/", h.RefreshToken)

	svc.On("Login", mock.Anything, "alice@example.com", "wonderland").Return(&auth.TokenPair{Access: "a", Refresh: "r"}, nil)
	svc.On("Login", mock.Anything, "alice@example.com", "wrong").
		Return(nil, apperrors.NewUnauthenticatedError("No active account found with the given credentials"))
	svc.On("Refresh", mock.Anything, "r").Return("a2", nil)

	w := doJSON(t, r, http.MethodPost, "/token/", map[string]string{"email": "alice@example.com", "password": "wonderland"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"access":"a","refresh":"r"}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/token/", map[string]string{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/token/", map[string]string{"email": "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"password: This field is required."}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/token/refresh/", map[string]string{"refresh": "r"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"access":"a2"}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/token/refresh/", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMessageHandler_ListFilters(t *testing.T) {
	svc := new(MockMessageService)
	h := NewMessageHandler(svc, zaptest.NewLogger(t))
	r := newEngine()
	r.GET("/messages/", h.List)
	r.GET("/conversations/:id/messages/", h.List)

	sender := uuid.NewString()
	conv := uuid.NewString()
	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	want := chat.MessageFilter{SenderID: sender, SentAfter: &after, Page: 2, PageSize: 5}
	svc.On("List", mock.Anything, alice, want).Return(&message.ListResult{
		Messages:   []chat.Message{{ID: "m1", ConversationID: conv, Sender: *alice, Body: "hi"}},
		Pagination: chat.NewPagination(6, 2, 5),
	}, nil)
	svc.On("List", mock.Anything, alice, chat.MessageFilter{ConversationID: conv}).
		Return(&message.ListResult{Pagination: chat.NewPagination(0, 1, 20)}, nil)

	w := doJSON(t, r, http.MethodGet, "/messages/?sender="+sender+"&sent_after=2024-01-01T00:00:00Z&page=2&page_size=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[MessageListResponse](t, w)
	assert.Equal(t, int64(6), page.Count)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Results, 1)
	assert.Equal(t, conv, page.Results[0].Conversation)
	assert.Equal(t, alice.ID, page.Results[0].Sender.UserID)

	w = doJSON(t, r, http.MethodGet, "/conversations/"+conv+"/messages/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, len(decode[MessageListResponse](t, w).Results))

	for _, q := range []string{"sender=nope", "sent_before=yesterday", "page=0", "page_size=abc"} {
		w = doJSON(t, r, http.MethodGet, "/messages/?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
	svc.AssertNumberOfCalls(t, "List", 2)
}

func TestMessageHandler_Create(t *testing.T) {
	svc := new(MockMessageService)
	h := NewMessageHandler(svc, zaptest.NewLogger(t))
	r := newEngine()
	r.POST("/messages/", h.Create)
	r.POST("/conversations/:id/messages/", h.Create)

	conv := uuid.NewString()
	other := uuid.NewString()
	sent := &chat.Message{ID: "m1", ConversationID: conv, Sender: *alice, Body: "hello"}
	svc.On("Send", mock.Anything, alice, conv, "hello").Return(sent, nil)
	svc.On("Send", mock.Anything, alice, other, "hello").
		Return(nil, apperrors.NewPermissionDeniedError("You are not a participant in this conversation."))

	w := doJSON(t, r, http.MethodPost, "/conversations/"+conv+"/messages/", map[string]string{"message_body": "hello", "conversation": other})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "hello", decode[MessageResponse](t, w).MessageBody)

	w = doJSON(t, r, http.MethodPost, "/messages/", map[string]string{"message_body": "hello", "conversation": other})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, "/messages/", map[string]string{"message_body": "hello", "conversation": "bad"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNumberOfCalls(t, "Send", 2)
}
