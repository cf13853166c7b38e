// Package invite keeps a log of tenant invitations on the system user's
// attribute bag in the registry. Each entry is one JSON-serialized value of
// the invitations attribute. Like every attribute update, writes are
// read-modify-write with last-writer-wins semantics.
package invite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/marit/provisioner/internal/model"
	"github.com/marit/provisioner/internal/platform"
)

// maxPendingPerInvitee is a soft cap; the race on the attribute bag means it
// can be exceeded under concurrent writers.
const maxPendingPerInvitee = 10

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// ErrTooManyPending rejects a new invitation for an invitee that already has
// the maximum number of pending ones.
var ErrTooManyPending = errors.New("too many pending invitations")

// ErrInvitationNotFound reports a Remove for an unknown invitation id.
var ErrInvitationNotFound = errors.New("invitation not found")

// Invitation is one entry of the invitation log.
type Invitation struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	TenantHost string    `json:"tenant_host"`
	InvitedBy  string    `json:"invited_by,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// AttributeStore is the slice of the registry the log writes through.
type AttributeStore interface {
	UserAttribute(ctx context.Context, userID, key string) ([]string, error)
	SetUserAttribute(ctx context.Context, userID, key string, values []string) error
}

// Log stores invitations under the system user's invitations attribute.
type Log struct {
	store        AttributeStore
	systemUserID string
	logger       zerolog.Logger
	now          func() time.Time
}

func NewLog(store AttributeStore, systemUserID string, logger zerolog.Logger) *Log {
	return &Log{
		store:        store,
		systemUserID: systemUserID,
		logger:       logger.With().Str("component", "invite").Logger(),
		now:          time.Now,
	}
}

// Add appends an invitation to the log. The invitee's address must be set;
// an invitee with maxPendingPerInvitee pending invitations is rejected.
func (l *Log) Add(ctx context.Context, inv Invitation) (*Invitation, error) {
	if strings.TrimSpace(inv.Email) == "" {
		return nil, fmt.Errorf("invitee email is empty")
	}

	entries, err := l.load(ctx)
	if err != nil {
		return nil, err
	}

	pending := 0
	for _, e := range entries {
		if e.Status == StatusPending && strings.EqualFold(e.Email, inv.Email) {
			pending++
		}
	}
	if pending >= maxPendingPerInvitee {
		return nil, fmt.Errorf("%w: %s has %d", ErrTooManyPending, inv.Email, pending)
	}

	inv.ID = platform.NewID()
	inv.Status = StatusPending
	inv.CreatedAt = l.now().UTC()

	entries = append(entries, inv)
	if err := l.save(ctx, entries); err != nil {
		return nil, err
	}

	l.logger.Info().Str("invitation_id", inv.ID).Str("email", inv.Email).Msg("invitation recorded")
	return &inv, nil
}

// ListPending returns the pending invitations, oldest first.
func (l *Log) ListPending(ctx context.Context) ([]Invitation, error) {
	entries, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	var pending []Invitation
	for _, e := range entries {
		if e.Status == StatusPending {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

// Remove deletes an invitation from the log by id.
func (l *Log) Remove(ctx context.Context, id string) error {
	entries, err := l.load(ctx)
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return ErrInvitationNotFound
	}
	return l.save(ctx, kept)
}

func (l *Log) load(ctx context.Context) ([]Invitation, error) {
	values, err := l.store.UserAttribute(ctx, l.systemUserID, model.AttrInvitations)
	if err != nil {
		return nil, fmt.Errorf("read invitation log: %w", err)
	}
	entries := make([]Invitation, 0, len(values))
	for _, v := range values {
		var inv Invitation
		if err := json.Unmarshal([]byte(v), &inv); err != nil {
			// A corrupt entry is dropped on the next save rather than
			// blocking the whole log.
			l.logger.Warn().Err(err).Msg("skipping unreadable invitation entry")
			continue
		}
		entries = append(entries, inv)
	}
	return entries, nil
}

func (l *Log) save(ctx context.Context, entries []Invitation) error {
	values := make([]string, 0, len(entries))
	for _, e := range entries {
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode invitation %s: %w", e.ID, err)
		}
		values = append(values, string(raw))
	}
	if err := l.store.SetUserAttribute(ctx, l.systemUserID, model.AttrInvitations, values); err != nil {
		return fmt.Errorf("write invitation log: %w", err)
	}
	return nil
}
