package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/freelance-marketplace/internal/model"
	"github.com/iliyamo/freelance-marketplace/internal/repository"
)

// ChatService carries the conversation between a project's client and its
// assigned freelancer.
type ChatService struct {
	store repository.Store
}

// NewChatService returns a chat service over store.
func NewChatService(store repository.Store) *ChatService {
	return &ChatService{store: store}
}

// party reports whether actor is the client or assigned freelancer of p.
func party(actor Actor, p *model.Project) bool {
	if p.ClientID == actor.UserID {
		return true
	}
	return p.FreelancerID != nil && *p.FreelancerID == actor.UserID
}

// Messages returns the conversation oldest first.  Administrators may read
// any conversation.
func (s *ChatService) Messages(ctx context.Context, actor Actor, projectID uint64) ([]model.Message, error) {
	p, err := s.store.Projects().GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !party(actor, p) {
		return nil, repository.ErrForbidden
	}
	return s.store.Messages().ListByProject(ctx, projectID)
}

// Send posts a message and notifies the other party.  A conversation
// exists only once a freelancer is assigned.
func (s *ChatService) Send(ctx context.Context, actor Actor, projectID uint64, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalidInput("content is required")
	}
	m := &model.Message{ProjectID: projectID, SenderID: actor.UserID, Content: content}
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		p, err := tx.Projects().GetByID(ctx, projectID)
		if err != nil {
			return err
		}
		if !party(actor, p) {
			return repository.ErrForbidden
		}
		if p.FreelancerID == nil {
			return invalidState("project %d has no assigned freelancer", p.ID)
		}
		recipient := p.ClientID
		if actor.UserID == p.ClientID {
			recipient = *p.FreelancerID
		}
		if err := tx.Messages().Create(ctx, m); err != nil {
			return err
		}
		return enqueue(ctx, tx, newMessage(recipient, actor.Username, p.Title))
	})
	if err != nil {
		return nil, err
	}
	m.SenderName = actor.Username
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return m, nil
}
