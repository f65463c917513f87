package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"gopkg.in/mail.v2"

	"github.com/staffmail/staffmail/internal/config"
)

// GmailTransport delivers messages using the Gmail API.
type GmailTransport struct {
	service *gmail.Service
}

// NewGmailTransport creates a GmailTransport.
// A service account credentials JSON with domain-wide delegation impersonates
// senderAddress; otherwise the OAuth2 client ID, secret and refresh token are used.
func NewGmailTransport(ctx context.Context, cfg config.GmailEmailConfig, senderAddress string) (*GmailTransport, error) {
	if senderAddress == "" {
		return nil, fmt.Errorf("gmail: sender address is required")
	}

	if cfg.CredentialsJSON != "" {
		jwtConfig, err := google.JWTConfigFromJSON([]byte(cfg.CredentialsJSON), gmail.GmailSendScope)
		if err != nil {
			return nil, fmt.Errorf("gmail: failed to parse credentials: %w", err)
		}
		jwtConfig.Subject = senderAddress
		return newGmailTransport(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}
	client := oauthCfg.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	return newGmailTransport(ctx, option.WithHTTPClient(client))
}

func newGmailTransport(ctx context.Context, opts ...option.ClientOption) (*GmailTransport, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail: failed to create service: %w", err)
	}
	return &GmailTransport{service: svc}, nil
}

// Deliver sends msg as a raw RFC 5322 message.
func (g *GmailTransport) Deliver(ctx context.Context, msg *mail.Message) error {
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return fmt.Errorf("gmail: failed to encode message: %w", err)
	}

	gmailMsg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(buf.Bytes()),
	}

	if _, err := g.service.Users.Messages.Send("me", gmailMsg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gmail: failed to send email: %w", err)
	}
	return nil
}
