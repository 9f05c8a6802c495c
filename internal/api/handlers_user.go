/**
 * @description
 * This file contains the HTTP handlers for the account endpoints: signup and
 * login. Both proxy the managed identity provider; signup additionally
 * mirrors the new identity into the wallet store so that debit workflows can
 * find a balance for it.
 *
 * @dependencies
 * - encoding/json, errors, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: Service logic, models, and custom errors.
 * - pkg/identityclient: The identity provider REST client.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/kobowallet/paga-gateway/internal/app"
	"github.com/kobowallet/paga-gateway/internal/domain"
	"github.com/kobowallet/paga-gateway/internal/store"
	"github.com/kobowallet/paga-gateway/pkg/identityclient"
)

// UserHandlers holds the dependencies for the account endpoints.
type UserHandlers struct {
	service  *app.Service
	identity *identityclient.Client
}

// NewUserHandlers creates a new instance of UserHandlers.
func NewUserHandlers(service *app.Service, identity *identityclient.Client) *UserHandlers {
	return &UserHandlers{service: service, identity: identity}
}

// CreateUserHandler provisions an identity with the provider and mirrors it
// into the wallet store with a zero opening balance.
func (h *UserHandlers) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" || strings.TrimSpace(req.DisplayName) == "" {
		h.writeError(w, http.StatusBadRequest, "email, password and displayName are required.")
		return
	}

	record, err := h.identity.CreateUser(r.Context(), identityclient.CreateUserParams{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		var apiErr *identityclient.APIError
		if errors.As(err, &apiErr) {
			log.Printf("level=warn component=api endpoint=create_user outcome=reject status=%d msg=%q", apiErr.StatusCode, apiErr.Message)
			h.writeError(w, apiErr.StatusCode, "Could not create user: "+apiErr.Message)
			return
		}
		log.Printf("level=error component=api endpoint=create_user err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "An error occurred while creating the user.")
		return
	}

	account := &domain.WalletAccount{
		UserID:      record.UID,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Balance:     0,
	}
	if err := h.service.RegisterUser(r.Context(), account); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			h.writeError(w, http.StatusConflict, "User already exists.")
			return
		}
		// The identity exists but the wallet mirror does not. Surface the
		// failure so the signup is retried rather than leaving a user who can
		// log in but has no balance row.
		log.Printf("level=error component=api endpoint=create_user msg=\"CRITICAL: identity created but wallet mirror failed\" user_id=%s err=%v", record.UID, err)
		h.writeError(w, http.StatusInternalServerError, "An error occurred while creating the user.")
		return
	}

	log.Printf("level=info component=api endpoint=create_user outcome=created user_id=%s", record.UID)
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created successfully.",
		"user": map[string]string{
			"userId":      record.UID,
			"email":       record.Email,
			"displayName": req.DisplayName,
		},
	})
}

// LoginHandler exchanges an email/password pair for identity provider tokens.
func (h *UserHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		h.writeError(w, http.StatusBadRequest, "email and password are required.")
		return
	}

	result, err := h.identity.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		var apiErr *identityclient.APIError
		if errors.As(err, &apiErr) {
			log.Printf("level=warn component=api endpoint=login outcome=reject status=%d msg=%q", apiErr.StatusCode, apiErr.Message)
			h.writeError(w, http.StatusUnauthorized, "Invalid email or password.")
			return
		}
		log.Printf("level=error component=api endpoint=login err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "An error occurred while signing in.")
		return
	}

	log.Printf("level=info component=api endpoint=login outcome=success user_id=%s", result.UserID)
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message":      "Login successful.",
		"userId":       result.UserID,
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
		"expiresIn":    result.ExpiresIn,
	})
}

func (h *UserHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *UserHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
