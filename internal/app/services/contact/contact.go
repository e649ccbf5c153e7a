// internal/app/services/contact/contact.go

// Package contact stores messages sent through the public contact form and
// lets admins reply to them.
package contact

import (
	"context"
	"errors"
	"strings"

	contactstore "github.com/dalemusser/classhub/internal/app/store/contactmessages"
	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/events"
	"github.com/dalemusser/classhub/internal/app/system/inputval"
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Service struct {
	messages   *contactstore.Store
	pub        events.Publisher
	adminEmail string
	log        *zap.Logger
}

func New(db *mongo.Database, pub events.Publisher, adminEmail string, log *zap.Logger) *Service {
	return &Service{
		messages:   contactstore.New(db),
		pub:        pub,
		adminEmail: adminEmail,
		log:        log,
	}
}

// Message is a contact form submission.
type Message struct {
	Name    string `validate:"required,max=50" label:"Name"`
	Email   string `validate:"required,email,max=100" label:"Email"`
	Message string `validate:"required,max=5000" label:"Message"`
}

// Submit stores a message and notifies the admin.
func (s *Service) Submit(ctx context.Context, in Message) (*models.ContactMessage, error) {
	in.Name = inputval.Clean(in.Name)
	in.Email = inputval.NormalizeEmail(in.Email)
	in.Message = inputval.Clean(in.Message)
	if res := inputval.Validate(in); res.HasErrors() {
		return nil, apperr.Validationf("%s", res.All())
	}
	m, err := s.messages.Create(ctx, models.ContactMessage{Name: in.Name, Email: in.Email, Message: in.Message})
	if err != nil {
		return nil, s.fault("submit_contact", err)
	}
	events.PublishAll(ctx, s.pub, s.log, events.New(events.ContactReceived, s.adminEmail, map[string]string{
		"name":    m.Name,
		"email":   m.Email,
		"message": m.Message,
	}))
	return m, nil
}

// List returns contact messages, newest first.
func (s *Service) List(ctx context.Context, p authz.Principal, unrepliedOnly bool) ([]models.ContactMessage, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	msgs, err := s.messages.List(ctx, unrepliedOnly)
	if err != nil {
		return nil, s.fault("list_contact", err)
	}
	return msgs, nil
}

// Reply records the admin's reply and emails it to the sender.
func (s *Service) Reply(ctx context.Context, p authz.Principal, id primitive.ObjectID, reply string) (*models.ContactMessage, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	reply = strings.TrimSpace(inputval.Clean(reply))
	if reply == "" {
		return nil, apperr.Validationf("reply is required")
	}
	m, err := s.messages.MarkReplied(ctx, id, reply)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundf("message not found")
	}
	if err != nil {
		return nil, s.fault("reply_contact", err)
	}
	events.PublishAll(ctx, s.pub, s.log, events.New(events.ContactReplied, m.Email, map[string]string{
		"name":  m.Name,
		"reply": reply,
	}))
	return m, nil
}

// Delete removes a message.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id primitive.ObjectID) error {
	if err := authz.RequireAdmin(p); err != nil {
		return err
	}
	n, err := s.messages.Delete(ctx, id)
	if err != nil {
		return s.fault("delete_contact", err)
	}
	if n == 0 {
		return apperr.NotFoundf("message not found")
	}
	return nil
}

func (s *Service) fault(op string, err error) error {
	err = apperr.Wrap(err)
	if apperr.Is(err, apperr.ServerFault) {
		s.log.Error("contact operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}
