package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/HarshitVashisht11/Transly/internal/app/transcription/api"
	"github.com/HarshitVashisht11/Transly/internal/pkg/cmdapp"
	errs "github.com/HarshitVashisht11/Transly/internal/pkg/err"
	"github.com/pkg/errors"
)

// Verifier resolves a bearer credential to the owner ID.
// Identity management itself lives outside this service
type Verifier interface {
	Verify(token string) (string, error)
}

type ctxKey int

const ownerKey ctxKey = 0

// Handler wraps next with bearer credential verification.
// The resolved owner ID is put into the request context
func Handler(next http.Handler, verifier Verifier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			setError(w, "No authorization token")
			return
		}
		owner, err := verifier.Verify(token)
		if err != nil {
			cmdapp.Log.Error(errors.Wrap(err, "Can't verify token"))
			setError(w, "Invalid authorization token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, owner)))
	})
}

// OwnerID returns the verified owner from the request context
func OwnerID(r *http.Request) string {
	owner, _ := r.Context().Value(ownerKey).(string)
	return owner
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func setError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(api.ErrorResult{Message: message, Code: errs.UnauthorizedCode})
}

// StaticVerifier maps configured tokens to owner IDs
type StaticVerifier struct {
	tokens map[string]string
}

// NewStaticVerifier creates StaticVerifier from token->owner map
func NewStaticVerifier(tokens map[string]string) (*StaticVerifier, error) {
	if len(tokens) == 0 {
		return nil, errors.New("No auth tokens provided")
	}
	return &StaticVerifier{tokens: tokens}, nil
}

// Verify resolves the token
func (v *StaticVerifier) Verify(token string) (string, error) {
	owner, found := v.tokens[token]
	if !found {
		return "", errors.New("unknown token")
	}
	return owner, nil
}
