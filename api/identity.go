package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// IdentityClient talks to the identity provider: a password exchange for
// sign-in and a standard OAuth2 refresh grant against the secure-token
// endpoint. Both endpoints carry the project API key in their URL.
type IdentityClient struct {
	signInURL  string
	refreshURL string
	httpClient *http.Client
}

type IdentityClientOption func(*IdentityClient)

// WithHTTPClient overrides the transport, primarily for tests.
func WithHTTPClient(c *http.Client) IdentityClientOption {
	return func(ic *IdentityClient) {
		ic.httpClient = c
	}
}

func NewIdentityClient(signInURL, refreshURL string, options ...IdentityClientOption) *IdentityClient {
	ic := &IdentityClient{
		signInURL:  signInURL,
		refreshURL: refreshURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range options {
		opt(ic)
	}
	return ic
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	IDToken      string      `json:"idToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresIn    json.Number `json:"expiresIn"`
}

type identityErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SignIn exchanges an email/password pair for token material.
func (ic *IdentityClient) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	payload, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, errors.Wrap(err, "[IdentityClient.SignIn] encode payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ic.signInURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "[IdentityClient.SignIn] build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ic.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(ErrNetwork, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(ErrNetwork, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return nil, signInError(resp.StatusCode, body)
	}

	var decoded signInResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, errors.Wrap(err, "[IdentityClient.SignIn] decode response")
	}
	if decoded.IDToken == "" || decoded.RefreshToken == "" {
		return nil, errors.Wrap(ErrInvalidCredential, "response missing token material")
	}

	return &Credentials{
		AccessToken:  decoded.IDToken,
		RefreshToken: decoded.RefreshToken,
		ExpiresIn:    expiresInDuration(decoded.ExpiresIn),
	}, nil
}

// Refresh runs the refresh_token grant through an oauth2 token source. The
// provider returns the new access token both as access_token and, for user
// sessions, as id_token; the id_token carries the role claim so it wins when
// present.
func (ic *IdentityClient) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  ic.refreshURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, ic.httpClient)
	source := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	tok, err := source.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, signInError(retrieveErr.Response.StatusCode, retrieveErr.Body)
		}
		return nil, errors.Wrap(ErrNetwork, err.Error())
	}

	accessToken := tok.AccessToken
	if idToken, ok := tok.Extra("id_token").(string); ok && idToken != "" {
		accessToken = idToken
	}
	if accessToken == "" {
		return nil, errors.Wrap(ErrInvalidCredential, "refresh response missing token")
	}

	newRefreshToken := tok.RefreshToken
	if newRefreshToken == "" {
		newRefreshToken = refreshToken
	}

	expiresIn := time.Hour
	if !tok.Expiry.IsZero() {
		expiresIn = time.Until(tok.Expiry)
	}

	return &Credentials{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

// signInError maps an identity-endpoint failure body onto the wire taxonomy.
// Credential problems surface as ErrInvalidCredential so the caller can tell
// a typo from an outage.
func signInError(status int, body []byte) error {
	var decoded identityErrorResponse
	_ = json.Unmarshal(body, &decoded)

	switch decoded.Error.Message {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_EMAIL", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
		return errors.Wrap(ErrInvalidCredential, decoded.Error.Message)
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		return errors.Wrap(ErrInvalidCredential, string(body))
	}
	return &ServerError{Status: status, Message: decoded.Error.Message}
}

func expiresInDuration(n json.Number) time.Duration {
	secs, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil || secs <= 0 {
		secs = 3600
	}
	return time.Duration(secs) * time.Second
}
