package httpapi

import (
	"context"
	"net/url"

	"github.com/goliatone/go-credentials"
)

// Notifier delivers activation and reset tokens out of band. Responses of
// the HTTP API never include tokens.
type Notifier interface {
	SendActivation(ctx context.Context, user *credentials.User, token string) error
	SendPasswordReset(ctx context.Context, user *credentials.User, token string) error
}

// LogNotifier writes the links to the logger. It is meant for development.
type LogNotifier struct {
	Logger  credentials.Logger
	BaseURL string
}

func (n LogNotifier) SendActivation(_ context.Context, user *credentials.User, token string) error {
	n.Logger.Info("activation link for %s: %s", user, n.link("/activate", token))
	return nil
}

func (n LogNotifier) SendPasswordReset(_ context.Context, user *credentials.User, token string) error {
	n.Logger.Info("password reset link for %s: %s", user, n.link("/password/reset", token))
	return nil
}

func (n LogNotifier) link(path, token string) string {
	return n.BaseURL + path + "?token=" + url.QueryEscape(token)
}
