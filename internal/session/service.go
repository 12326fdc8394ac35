package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"custodia/internal/audit"
	"custodia/internal/identity"
	"custodia/internal/platform/metrics"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

type IdentityDirectory interface {
	Resolve(ctx context.Context, addr id.Address) (*identity.Identity, error)
	Register(ctx context.Context, addr id.Address, profile identity.Profile) (*identity.Identity, error)
	Touch(ctx context.Context, addr id.Address) error
}

type TokenIssuer interface {
	GenerateSessionToken(address id.Address, sessionID id.SessionID, expiresIn time.Duration) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// EstablishRequest carries the connect handshake input. Profile is nil on a
// plain connect and set when the caller answers a needs-registration reply.
type EstablishRequest struct {
	Address id.Address
	Profile *identity.Profile
}

// EstablishResult is the handshake outcome. NeedsRegistration is a first
// class result, not an error: the address is simply not registered yet.
type EstablishResult struct {
	NeedsRegistration bool
	Session           *Session
	Identity          *identity.Identity
	Token             string
}

// Service is the session manager. It owns the connect/disconnect lifecycle
// and answers liveness checks for the request middleware.
type Service struct {
	store          Store
	directory      IdentityDirectory
	tokens         TokenIssuer
	ttl            time.Duration
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

// New constructs a Service. ttl bounds every session it establishes.
func New(store Store, directory IdentityDirectory, tokens TokenIssuer, ttl time.Duration, opts ...Option) *Service {
	s := &Service{store: store, directory: directory, tokens: tokens, ttl: ttl}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Establish authenticates addr and opens a session. Unknown or unregistered
// addresses without a profile get a NeedsRegistration result; supplying a
// profile registers first and then connects. A registration lost to a
// concurrent connect falls back to the winner's identity.
func (s *Service) Establish(ctx context.Context, req EstablishRequest) (*EstablishResult, error) {
	ident, err := s.directory.Resolve(ctx, req.Address)
	switch {
	case err == nil && ident.Registered:
		// Known address; profile on a repeat connect is ignored.
	case err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound):
		return nil, err
	default:
		if req.Profile == nil {
			return &EstablishResult{NeedsRegistration: true}, nil
		}
		ident, err = s.directory.Register(ctx, req.Address, *req.Profile)
		if err != nil {
			if !dErrors.HasCode(err, dErrors.CodeConflict) {
				return nil, err
			}
			ident, err = s.directory.Resolve(ctx, req.Address)
			if err != nil {
				return nil, err
			}
		}
	}

	if err := s.directory.Touch(ctx, req.Address); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	sess := &Session{
		ID:         id.NewSessionID(),
		Address:    req.Address,
		Status:     StatusAuthenticated,
		DeviceName: requestcontext.DeviceName(ctx),
		ClientIP:   requestcontext.ClientIP(ctx),
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	token, err := s.tokens.GenerateSessionToken(req.Address, sess.ID, s.ttl)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token")
	}

	s.logAudit(ctx, string(audit.EventSessionEstablished), req.Address, sess)
	if s.metrics != nil {
		s.metrics.IncrementSessionsEstablished()
	}
	return &EstablishResult{Session: sess, Identity: ident, Token: token}, nil
}

// Terminate ends the session. Terminating an already terminated session is
// a no-op; the session stays terminated and keeps its original timestamp.
func (s *Service) Terminate(ctx context.Context, sessionID id.SessionID) error {
	now := requestcontext.Now(ctx)
	var alreadyTerminated bool

	sess, err := s.store.Execute(ctx, sessionID,
		func(sess *Session) error {
			if err := sess.CanTerminate(); err != nil {
				alreadyTerminated = true
			}
			return nil
		},
		func(sess *Session) {
			if !alreadyTerminated {
				sess.ApplyTermination(now)
			}
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to terminate session")
	}
	if alreadyTerminated {
		return nil
	}

	s.logAudit(ctx, string(audit.EventSessionTerminated), sess.Address, sess)
	return nil
}

// Verify answers the middleware's liveness check. Terminated and expired
// sessions both report sentinel.ErrExpired; a session that never existed
// reports sentinel.ErrNotFound.
func (s *Service) Verify(ctx context.Context, sessionID id.SessionID) error {
	sess, err := s.store.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return err
	}
	if err := sess.CanUse(requestcontext.Now(ctx)); err != nil {
		return sentinel.ErrExpired
	}
	return nil
}

// Get returns the session for callers outside the middleware path.
func (s *Service) Get(ctx context.Context, sessionID id.SessionID) (*Session, error) {
	sess, err := s.store.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	return sess, nil
}

func (s *Service) logAudit(ctx context.Context, event string, actor id.Address, sess *Session) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, event,
			"event", event, "actor", actor.String(), "session_id", sess.ID.String(), "log_type", "audit")
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Actor:     actor,
		Action:    event,
		RequestID: requestcontext.RequestID(ctx),
		Device:    sess.DeviceName,
		ClientIP:  sess.ClientIP,
	})
}
