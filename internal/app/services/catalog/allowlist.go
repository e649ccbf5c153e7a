// internal/app/services/catalog/allowlist.go
package catalog

import (
	"context"

	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/inputval"
	"github.com/dalemusser/classhub/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// normalizeEmails lower-cases, trims, and dedupes emails, rejecting any
// that are malformed.
func normalizeEmails(emails []string) ([]string, error) {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, raw := range emails {
		e := inputval.NormalizeEmail(raw)
		if e == "" {
			continue
		}
		if !inputval.IsValidEmail(e) {
			return nil, apperr.Validationf("%q is not a valid email address", raw)
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out, nil
}

// AddAllowedEmails adds emails to the group's allow-list and returns the
// ones that were new. Conflict when none were.
func (s *Service) AddAllowedEmails(ctx context.Context, p authz.Principal, groupID primitive.ObjectID, emails []string) ([]string, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	norm, err := normalizeEmails(emails)
	if err != nil {
		return nil, err
	}
	if len(norm) == 0 {
		return nil, apperr.Validationf("at least one email is required")
	}
	g, err := s.load(ctx, groupID)
	if err != nil {
		return nil, err
	}
	listed := make(map[string]struct{}, len(g.AllowedEmails))
	for _, e := range g.AllowedEmails {
		listed[e] = struct{}{}
	}
	var added []string
	for _, e := range norm {
		if _, ok := listed[e]; !ok {
			added = append(added, e)
		}
	}
	if len(added) == 0 {
		return nil, apperr.Conflictf("all emails are already allowed")
	}
	if err := s.groups.AddAllowedEmails(ctx, groupID, added); err != nil {
		return nil, s.fault("add_allowed_emails", err)
	}
	return added, nil
}

// SetAllowedEmails replaces the group's allow-list. Each listed email is
// removed from every other group's allow-list.
func (s *Service) SetAllowedEmails(ctx context.Context, p authz.Principal, groupID primitive.ObjectID, emails []string) ([]string, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	norm, err := normalizeEmails(emails)
	if err != nil {
		return nil, err
	}
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		ok, err := s.groups.Exists(ctx, groupID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFoundf("group not found")
		}
		if err := s.groups.SetAllowedEmails(ctx, groupID, norm); err != nil {
			return err
		}
		_, err = s.groups.PullAllowedEmailsFromOthers(ctx, groupID, norm)
		return err
	})
	if err != nil {
		return nil, s.fault("set_allowed_emails", err)
	}
	return norm, nil
}

// RemoveAllowedEmail drops one email from the allow-list.
func (s *Service) RemoveAllowedEmail(ctx context.Context, p authz.Principal, groupID primitive.ObjectID, email string) error {
	if err := authz.RequireAdmin(p); err != nil {
		return err
	}
	if _, err := s.load(ctx, groupID); err != nil {
		return err
	}
	removed, err := s.groups.RemoveAllowedEmail(ctx, groupID, inputval.NormalizeEmail(email))
	if err != nil {
		return s.fault("remove_allowed_email", err)
	}
	if !removed {
		return apperr.NotFoundf("email is not on the allow-list")
	}
	return nil
}

// AllowedEmail is an allow-list entry with the account that owns it, if any.
type AllowedEmail struct {
	Email string       `json:"email"`
	User  *UserSummary `json:"user,omitempty"`
}

// UserSummary identifies a registered user.
type UserSummary struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

// ListAllowedEmails returns the group's allow-list, matched to registered
// users.
func (s *Service) ListAllowedEmails(ctx context.Context, p authz.Principal, groupID primitive.ObjectID) ([]AllowedEmail, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	g, err := s.load(ctx, groupID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ListByEmails(ctx, g.AllowedEmails)
	if err != nil {
		return nil, s.fault("list_allowed_emails", err)
	}
	byEmail := make(map[string]UserSummary, len(users))
	for _, u := range users {
		byEmail[u.Email] = UserSummary{ID: u.ID, Name: u.Name}
	}
	out := make([]AllowedEmail, 0, len(g.AllowedEmails))
	for _, e := range g.AllowedEmails {
		entry := AllowedEmail{Email: e}
		if u, ok := byEmail[e]; ok {
			entry.User = &u
		}
		out = append(out, entry)
	}
	return out, nil
}
