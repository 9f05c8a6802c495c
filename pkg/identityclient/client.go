/**
 * @description
 * This package provides a client for the managed identity service's REST
 * API. The gateway uses it for the two account flows it proxies on behalf
 * of the mobile app: creating a user at signup and exchanging an
 * email/password pair for tokens at login. Token verification is not done
 * here; the API middleware validates bearer tokens against the provider's
 * JWKS endpoint.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package identityclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a client for the identity provider's account endpoints.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new identity service client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// APIError represents an error response from the identity provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("identity api error: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("identity api error: status %d", e.StatusCode)
}

// CreateUserParams are the inputs for provisioning a new identity.
type CreateUserParams struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// UserRecord is the provider's view of a created identity.
type UserRecord struct {
	UID         string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// SignInResult carries the tokens returned by a password sign-in.
type SignInResult struct {
	UserID       string `json:"localId"`
	AccessToken  string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// CreateUser provisions a new identity with the provider.
func (c *Client) CreateUser(ctx context.Context, params CreateUserParams) (*UserRecord, error) {
	payload := struct {
		CreateUserParams
		ReturnSecureToken bool `json:"returnSecureToken"`
	}{params, true}

	var record UserRecord
	if err := c.post(ctx, "accounts:signUp", payload, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// SignInWithPassword exchanges an email/password pair for tokens.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error) {
	payload := struct {
		Email             string `json:"email"`
		Password          string `json:"password"`
		ReturnSecureToken bool   `json:"returnSecureToken"`
	}{email, password, true}

	var result SignInResult
	if err := c.post(ctx, "accounts:signInWithPassword", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
	}

	reqURL := c.BaseURL + "/v1/" + endpoint + "?key=" + url.QueryEscape(c.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(bodyBytes, &errResp)
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error.Message}
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}
