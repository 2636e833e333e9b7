package message

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"messaging-service/internal/domain/chat"
	"messaging-service/internal/usecase/permission"
	apperrors "messaging-service/pkg/errors"
	"messaging-service/pkg/logger"
)

// Repository defines the message storage operations.
type Repository interface {
	Create(ctx context.Context, msg *chat.Message) error
	GetByID(ctx context.Context, id string) (*chat.Message, error)
	ListForUser(ctx context.Context, userID string, f chat.MessageFilter) ([]chat.Message, int64, error)
	UpdateBody(ctx context.Context, id, body string) error
	Delete(ctx context.Context, id string) error
}

// ConversationLookup resolves conversations by ID.
type ConversationLookup interface {
	GetByID(ctx context.Context, id string) (*chat.Conversation, error)
}

// ListResult is one page of messages.
type ListResult struct {
	Messages   []chat.Message
	Pagination chat.Pagination
}

// Usecase implements sending and managing messages.
type Usecase struct {
	repo  Repository
	convs ConversationLookup
	perm  *permission.Checker
	log   *zap.Logger
}

// New creates a new instance of Usecase.
func New(repo Repository, convs ConversationLookup, perm *permission.Checker, log *zap.Logger) *Usecase {
	return &Usecase{repo: repo, convs: convs, perm: perm, log: log}
}

// List returns messages from conversations caller takes part in, newest first.
func (uc *Usecase) List(ctx context.Context, caller *chat.User, f chat.MessageFilter) (*ListResult, error) {
	f.Normalize()
	msgs, total, err := uc.repo.ListForUser(ctx, caller.ID, f)
	if err != nil {
		return nil, err
	}
	p := chat.NewPagination(total, f.Page, f.PageSize)
	if f.Page > 1 && f.Page > p.TotalPages {
		return nil, apperrors.NewNotFoundError("page", "Invalid page.")
	}
	return &ListResult{Messages: msgs, Pagination: p}, nil
}

// Send posts body into conversation convID on behalf of caller.
func (uc *Usecase) Send(ctx context.Context, caller *chat.User, convID, body string) (*chat.Message, error) {
	if convID == "" {
		return nil, apperrors.NewValidationError("conversation", "This field is required.")
	}
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("message_body", "This field may not be blank.")
	}

	conv, err := uc.convs.GetByID(ctx, convID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("conversation", "Conversation not found.")
		}
		return nil, err
	}
	if err := uc.perm.CanCreateMessage(ctx, caller, conv); err != nil {
		return nil, err
	}

	msg := &chat.Message{
		ConversationID: conv.ID,
		Sender:         *caller,
		Body:           body,
	}
	if err := uc.repo.Create(ctx, msg); err != nil {
		return nil, err
	}

	logger.WithContext(ctx, uc.log).Info("message sent",
		zap.String("sender", caller.Email),
		zap.String("conversation_id", conv.ID))
	return msg, nil
}

// Get returns a message from a conversation caller takes part in. Other messages are
// reported as not found.
func (uc *Usecase) Get(ctx context.Context, caller *chat.User, id string) (*chat.Message, error) {
	msg, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	conv, err := uc.convs.GetByID(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(caller.ID) {
		return nil, apperrors.NewNotFoundError("message", "message not found")
	}
	return msg, nil
}

// Update replaces the body of a message. Only its sender may do so.
func (uc *Usecase) Update(ctx context.Context, caller *chat.User, id, body string) (*chat.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("message_body", "This field may not be blank.")
	}

	msg, err := uc.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := uc.perm.IsMessageSender(ctx, caller, msg); err != nil {
		return nil, err
	}

	if err := uc.repo.UpdateBody(ctx, id, body); err != nil {
		return nil, err
	}
	msg.Body = body
	return msg, nil
}

// Delete removes a message. Only its sender may do so.
func (uc *Usecase) Delete(ctx context.Context, caller *chat.User, id string) error {
	msg, err := uc.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := uc.perm.IsMessageSender(ctx, caller, msg); err != nil {
		return err
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.WithContext(ctx, uc.log).Info("message deleted",
		zap.String("sender", caller.Email),
		zap.String("message_id", id))
	return nil
}
