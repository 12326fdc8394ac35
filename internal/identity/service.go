package identity

import (
	"context"
	"errors"
	"log/slog"

	"custodia/internal/audit"
	"custodia/internal/platform/metrics"
	"custodia/pkg/attrs"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the identity directory. It resolves addresses to roles and
// records registrations; the role itself comes from the static assigner and
// is fixed at registration time.
type Service struct {
	store          Store
	roles          RoleAssigner
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(store Store, roles RoleAssigner, opts ...Option) *Service {
	s := &Service{store: store, roles: roles}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the identity at addr. Unknown addresses yield not_found;
// callers decide whether that means a registration handshake is required.
func (s *Service) Resolve(ctx context.Context, addr id.Address) (*Identity, error) {
	ident, err := s.store.FindByAddress(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "identity not registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve identity")
	}
	return ident, nil
}

// Register creates a registered identity for addr with the role the assigner
// grants it. Sparse profiles are filled with role-derived defaults.
// Registering an already registered address fails with conflict.
func (s *Service) Register(ctx context.Context, addr id.Address, profile Profile) (*Identity, error) {
	role := s.roles.RoleFor(addr)
	now := requestcontext.Now(ctx)

	ident := &Identity{
		Address:      addr,
		Role:         role,
		Registered:   true,
		RegisteredAt: now,
		LastSeenAt:   now,
	}
	filled := profile.withDefaults(role, addr)
	ident.Name = filled.Name
	ident.Department = filled.Department
	ident.BadgeNumber = filled.BadgeNumber
	ident.Email = filled.Email

	if err := s.store.CreateIfUnregistered(ctx, ident); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "address is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register identity")
	}

	s.logAudit(ctx, string(audit.EventIdentityRegistered), addr, "role", role.String())
	if s.metrics != nil {
		s.metrics.IncrementIdentitiesRegistered()
	}
	return ident, nil
}

// Touch records account activity. Unknown addresses are ignored so the
// session path never fails on bookkeeping.
func (s *Service) Touch(ctx context.Context, addr id.Address) error {
	if err := s.store.Touch(ctx, addr, requestcontext.Now(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to touch identity")
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, event string, actor id.Address, attributes ...any) {
	args := append(attributes, "event", event, "actor", actor.String(), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Actor:     actor,
		Action:    event,
		Reason:    attrs.ExtractString(attributes, "role"),
		RequestID: requestcontext.RequestID(ctx),
		Device:    requestcontext.DeviceName(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
	})
}
