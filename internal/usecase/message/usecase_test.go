package message

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"messaging-service/internal/adapter/db/chatstore"
	"messaging-service/internal/domain/chat"
	"messaging-service/internal/usecase/permission"
	apperrors "messaging-service/pkg/errors"
)

type fixture struct {
	uc    *Usecase
	convs *chatstore.ConversationRepo
	alice *chat.User
	bob   *chat.User
	carol *chat.User
	conv  *chat.Conversation
}

func setup(t *testing.T) fixture {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, chatstore.Migrate(db))

	log := zaptest.NewLogger(t)
	users := chatstore.NewUserRepo(db, log)
	convs := chatstore.NewConversationRepo(db, log)
	msgs := chatstore.NewMessageRepo(db, log)

	mk := func(name string) *chat.User {
		u := &chat.User{ID: uuid.NewString(), FirstName: name, LastName: "T", Email: name + "@example.com", Role: chat.RoleGuest, IsActive: true, PasswordHash: "x"}
		require.NoError(t, users.Create(context.Background(), u))
		return u
	}
	f := fixture{
		uc:    New(msgs, convs, permission.NewChecker(log), log),
		convs: convs,
		alice: mk("alice"),
		bob:   mk("bob"),
		carol: mk("carol"),
	}
	f.conv, err = convs.Create(context.Background(), []string{f.alice.ID, f.bob.ID})
	require.NoError(t, err)
	return f
}

func TestSend(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	msg, err := f.uc.Send(ctx, f.alice, f.conv.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, msg.Sender.ID)
	assert.Equal(t, f.conv.ID, msg.ConversationID)
	assert.NotEmpty(t, msg.ID)

	tests := []struct {
		name       string
		caller     *chat.User
		convID     string
		body       string
		wantStatus int
	}{
		{name: "non participant", caller: f.carol, convID: f.conv.ID, body: "hi", wantStatus: 403},
		{name: "unknown conversation", caller: f.alice, convID: uuid.NewString(), body: "hi", wantStatus: 404},
		{name: "empty body", caller: f.alice, convID: f.conv.ID, body: "   ", wantStatus: 400},
		{name: "missing conversation", caller: f.alice, convID: "", body: "hi", wantStatus: 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.Send(ctx, tt.caller, tt.convID, tt.body)
			status, _ := apperrors.HTTPResponse(err)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestGet_Visibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	msg, err := f.uc.Send(ctx, f.alice, f.conv.ID, "hello")
	require.NoError(t, err)

	got, err := f.uc.Get(ctx, f.bob, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Body)
	assert.Equal(t, f.alice.Email, got.Sender.Email)

	_, err = f.uc.Get(ctx, f.carol, msg.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateDelete_OnlySender(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	msg, err := f.uc.Send(ctx, f.alice, f.conv.ID, "hello")
	require.NoError(t, err)

	_, err = f.uc.Update(ctx, f.bob, msg.ID, "edited by bob")
	status, _ := apperrors.HTTPResponse(err)
	assert.Equal(t, 403, status)

	err = f.uc.Delete(ctx, f.bob, msg.ID)
	status, _ = apperrors.HTTPResponse(err)
	assert.Equal(t, 403, status)

	updated, err := f.uc.Update(ctx, f.alice, msg.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Body)

	require.NoError(t, f.uc.Delete(ctx, f.alice, msg.ID))
	_, err = f.uc.Get(ctx, f.alice, msg.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestList_Paginated(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.uc.Send(ctx, f.bob, f.conv.ID, "msg")
		require.NoError(t, err)
	}
	other, err := f.convs.Create(ctx, []string{f.carol.ID})
	require.NoError(t, err)
	_, err = f.uc.Send(ctx, f.carol, other.ID, "private")
	require.NoError(t, err)

	res, err := f.uc.List(ctx, f.alice, chat.MessageFilter{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, res.Messages, 2)
	assert.Equal(t, chat.Pagination{Count: 5, Page: 1, PageSize: 2, TotalPages: 3}, res.Pagination)

	res, err = f.uc.List(ctx, f.carol, chat.MessageFilter{})
	require.NoError(t, err)
	assert.Len(t, res.Messages, 1)
	assert.Equal(t, chat.DefaultPageSize, res.Pagination.PageSize)
}

func TestList_PageOutOfRange(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.uc.Send(ctx, f.bob, f.conv.ID, "only one")
	require.NoError(t, err)

	res, err := f.uc.List(ctx, f.alice, chat.MessageFilter{Page: 1})
	require.NoError(t, err)
	assert.Len(t, res.Messages, 1)

	_, err = f.uc.List(ctx, f.alice, chat.MessageFilter{Page: 2})
	assert.True(t, apperrors.IsNotFound(err))
}
