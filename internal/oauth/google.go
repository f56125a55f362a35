package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"authgate/internal/model"
)

// GoogleUserInfoURL is the OpenID Connect userinfo endpoint.
const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleConfig holds the client credentials registered in Google Cloud Console.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint and UserInfoURL default to Google's; tests point them elsewhere.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// GoogleVerifier runs the Google authorization-code flow.
type GoogleVerifier struct {
	conf        *oauth2.Config
	userInfoURL string
	states      *StateStore
}

// Ensure GoogleVerifier implements Verifier
var _ Verifier = (*GoogleVerifier)(nil)

// NewGoogleVerifier creates a verifier requesting the openid, email and profile scopes.
func NewGoogleVerifier(cfg GoogleConfig, states *StateStore) *GoogleVerifier {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" || endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = GoogleUserInfoURL
	}
	return &GoogleVerifier{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: userInfoURL,
		states:      states,
	}
}

// Provider returns the provider tag for Google-linked accounts.
func (v *GoogleVerifier) Provider() string {
	return model.ProviderGoogle
}

// AuthCodeURL issues a state token and returns Google's consent URL.
func (v *GoogleVerifier) AuthCodeURL(ctx context.Context) (string, error) {
	state, err := v.states.Issue(ctx, v.Provider())
	if err != nil {
		return "", err
	}
	return v.conf.AuthCodeURL(state), nil
}

type googleUserInfo struct {
	Sub   string `json:"sub"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Verify checks state, exchanges the code and reads the user's profile. A
// profile without an email is returned as is; rejecting it is up to the caller.
func (v *GoogleVerifier) Verify(ctx context.Context, cb Callback) (Assertion, error) {
	if cb.Error != "" {
		return Assertion{}, fmt.Errorf("%w: provider returned %q", ErrHandshakeFailed, cb.Error)
	}
	if err := v.states.Consume(ctx, v.Provider(), cb.State); err != nil {
		return Assertion{}, err
	}
	if cb.Code == "" {
		return Assertion{}, fmt.Errorf("%w: missing code", ErrHandshakeFailed)
	}

	token, err := v.conf.Exchange(ctx, cb.Code)
	if err != nil {
		return Assertion{}, fmt.Errorf("%w: exchange code: %v", ErrHandshakeFailed, err)
	}

	info, err := v.fetchUserInfo(ctx, token)
	if err != nil {
		return Assertion{}, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	return Assertion{
		Provider:    v.Provider(),
		ProviderID:  info.Sub,
		DisplayName: info.Name,
		Email:       info.Email,
	}, nil
}

func (v *GoogleVerifier) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}

	resp, err := v.conf.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &info, nil
}
