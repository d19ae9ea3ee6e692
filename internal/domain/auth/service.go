package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecalcano/estore/internal/domain/user"
)

// Sentinel errors for authentication.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrEmailTaken         = errors.New("email is already registered")
)

// Service authenticates users and issues session tokens signed with
// HMAC-SHA256.
type Service struct {
	users  user.Repository
	secret []byte
	now    func() time.Time
}

// NewService creates an auth Service backed by the given user repository.
func NewService(users user.Repository, secret []byte) *Service {
	return &Service{users: users, secret: secret, now: time.Now}
}

// SignIn verifies the credentials against the stored bcrypt hash and returns
// a signed session token. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", errors.Wrap(err, "get user")
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	return s.issueToken(u)
}

// SignUp registers a new account with a bcrypt password hash and signs the
// user in.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (string, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return "", ErrEmailTaken
	} else if !errors.Is(err, user.ErrNotFound) {
		return "", errors.Wrap(err, "get user")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}

	u := &user.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         user.RoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return "", errors.Wrap(err, "create user")
	}

	return s.issueToken(u)
}

// ParseToken validates a session token and derives the session view.
func (s *Service) ParseToken(token string) (Session, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Session{}, ErrInvalidToken
	}
	return SessionFromClaims(claims), nil
}

func (s *Service) issueToken(u *user.User) (string, error) {
	claims := NewClaims(u, s.now())
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return token, nil
}
