package remote

import (
	"context"
	"net/http"

	"github.com/starford/notedash/internal/models"
)

// NewAccount is the body of the create-account call.
type NewAccount struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Credentials is the body of the login call. The API's login model also
// requires an email it never checks.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type userEnvelope struct {
	Message string      `json:"message"`
	User    models.User `json:"user"`
}

// CreateUser registers a new account.
func (c *Client) CreateUser(ctx context.Context, acct NewAccount) (*models.User, error) {
	r, err := jsonRequest("create account", http.MethodPost, "/users/", acct)
	if err != nil {
		return nil, err
	}
	var env userEnvelope
	if err := c.do(ctx, r, &env); err != nil {
		return nil, err
	}
	return &env.User, nil
}

// Login exchanges credentials for the user identity.
func (c *Client) Login(ctx context.Context, creds Credentials) (*models.User, error) {
	r, err := jsonRequest("login", http.MethodPost, "/users/login", creds)
	if err != nil {
		return nil, err
	}
	var env userEnvelope
	if err := c.do(ctx, r, &env); err != nil {
		return nil, err
	}
	return &env.User, nil
}
