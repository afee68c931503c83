// Package account exchanges credentials with the notes API and hands the
// resulting identity to the session store.
package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/notedash/internal/apperr"
	"github.com/starford/notedash/internal/models"
	"github.com/starford/notedash/internal/remote"
)

// LoginEmail is sent with every login. The API's login model requires an
// email field but authenticates on username and password only.
const LoginEmail = "login@example.com"

// Remote is the credential half of the notes API.
type Remote interface {
	CreateUser(ctx context.Context, acct remote.NewAccount) (*models.User, error)
	Login(ctx context.Context, creds remote.Credentials) (*models.User, error)
}

// Session receives the identity on login and clears it on logout.
type Session interface {
	Login(user models.User) error
	Logout() error
}

// Invalidator is told when cached note collections become stale.
type Invalidator interface {
	Invalidate()
}

// SignupForm is the registration form.
type SignupForm struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Validate checks the form before anything is sent.
func (f *SignupForm) Validate() error {
	if blank(f.Username, f.Email, f.Password, f.ConfirmPassword) {
		return apperr.Invalidf("All fields are required.")
	}
	if f.Password != f.ConfirmPassword {
		return apperr.Invalidf("Passwords do not match.")
	}
	return apperr.Invalid(validation.ValidateStruct(f,
		validation.Field(&f.Email, is.EmailFormat),
	))
}

// LoginForm is the sign-in form.
type LoginForm struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks the form before anything is sent.
func (f *LoginForm) Validate() error {
	if blank(f.Username, f.Password) {
		return apperr.Invalidf("Username and password are required.")
	}
	return nil
}

// Service runs signup, login and logout.
type Service struct {
	remote  Remote
	session Session
	views   []Invalidator
	logger  *slog.Logger
}

// New returns a Service. views are invalidated on logout.
func New(r Remote, s Session, logger *slog.Logger, views ...Invalidator) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{remote: r, session: s, views: views, logger: logger}
}

// Signup registers a new account. It does not log in.
func (s *Service) Signup(ctx context.Context, form SignupForm) (*models.User, error) {
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)
	if err := form.Validate(); err != nil {
		return nil, fmt.Errorf("account: signup: %w", err)
	}
	user, err := s.remote.CreateUser(ctx, remote.NewAccount{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("account: signup: %w", err)
	}
	s.logger.Info("account created", slog.String("username", user.Username))
	return user, nil
}

// Login exchanges credentials and stores the returned identity.
func (s *Service) Login(ctx context.Context, form LoginForm) (*models.User, error) {
	form.Username = strings.TrimSpace(form.Username)
	if err := form.Validate(); err != nil {
		return nil, fmt.Errorf("account: login: %w", err)
	}
	user, err := s.remote.Login(ctx, remote.Credentials{
		Username: form.Username,
		Password: form.Password,
		Email:    LoginEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("account: login: %w", err)
	}
	if err := s.session.Login(*user); err != nil {
		return nil, fmt.Errorf("account: login: %w", err)
	}
	s.logger.Info("logged in", slog.String("user_id", user.ID))
	return user, nil
}

// Logout clears the session and marks cached collections stale. The
// in-memory session is cleared even when removing the stored copy fails.
func (s *Service) Logout() error {
	err := s.session.Logout()
	for _, v := range s.views {
		v.Invalidate()
	}
	if err != nil {
		return fmt.Errorf("account: logout: %w", err)
	}
	return nil
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

