package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"notebook-sync-be/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const ProviderGoogle = "google"

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// ProviderProfile is what a sign-in provider tells us about the user.
type ProviderProfile struct {
	ProviderUserId string
	Email          string
	Name           string
	Picture        string
}

type IdentityProvider interface {
	Name() string
	AuthCodeURL(state string) string
	// FetchProfile exchanges an authorization code for the user's profile.
	FetchProfile(ctx context.Context, code string) (*ProviderProfile, error)
}

type googleProvider struct {
	conf        *oauth2.Config
	userInfoURL string
}

func NewGoogleProvider(cfg config.GoogleOAuthConfig) IdentityProvider {
	return &googleProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (p *googleProvider) Name() string {
	return ProviderGoogle
}

func (p *googleProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *googleProvider) FetchProfile(ctx context.Context, code string) (*ProviderProfile, error) {
	token, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.conf.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info returned status %d", resp.StatusCode)
	}

	var googleUser struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&googleUser); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	if googleUser.Email == "" {
		return nil, fmt.Errorf("provider returned no email")
	}

	return &ProviderProfile{
		ProviderUserId: googleUser.ID,
		Email:          googleUser.Email,
		Name:           googleUser.Name,
		Picture:        googleUser.Picture,
	}, nil
}
