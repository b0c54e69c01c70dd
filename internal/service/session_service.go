package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"ems-desk/internal/auth"
	"ems-desk/internal/domain"
	"ems-desk/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUsernameTaken is returned when signing up with a username already in the store.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrInvalidInput is returned for empty or oversized usernames and passwords.
	ErrInvalidInput = errors.New("invalid input")
)

// bcrypt ignores everything past 72 bytes, so longer passwords are refused.
const maxPasswordBytes = 72

// SessionService gates access: sign-up adds credentials, log-in turns a
// matching username/password into a session token.
type SessionService interface {
	SignUp(ctx context.Context, username, password string) error
	LogIn(ctx context.Context, username, password string) (*domain.Session, error)
	Authenticate(token string) (*domain.Session, error)
}

type sessionService struct {
	// mu serializes load-modify-save cycles on the store.
	mu       sync.Mutex
	store    repository.CredentialStore
	tokens   *auth.Issuer
	logger   *logrus.Logger
	hashCost int
}

func NewSessionService(store repository.CredentialStore, tokens *auth.Issuer, logger *logrus.Logger) SessionService {
	return &sessionService{
		store:    store,
		tokens:   tokens,
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
	}
}

func (s *sessionService) SignUp(ctx context.Context, username, password string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordBytes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	store, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	if _, exists := store.Find(username); exists {
		return ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	store.Records = append(store.Records, domain.Credential{
		Username: username,
		Password: string(hash),
	})

	if err := s.store.Save(ctx, store); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	s.logger.WithField("username", username).Info("account created")
	return nil
}

func (s *sessionService) LogIn(ctx context.Context, username, password string) (*domain.Session, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	s.mu.Lock()
	store, err := s.store.Load(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	rec, ok := store.Find(username)
	if !ok || !passwordMatches(rec.Password, password) {
		s.logger.WithField("username", username).Warn("login rejected")
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(username)
	if err != nil {
		return nil, err
	}
	return &domain.Session{Username: username, Token: token, ExpiresAt: expires}, nil
}

func (s *sessionService) Authenticate(token string) (*domain.Session, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	session := &domain.Session{Username: claims.Username, Token: token}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// passwordMatches compares against a bcrypt hash, or byte for byte when the
// stored value is a plaintext password from an older spreadsheet.
func passwordMatches(stored, password string) bool {
	if _, err := bcrypt.Cost([]byte(stored)); err == nil {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}
