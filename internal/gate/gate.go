// Package gate checks the shared admin password.
package gate

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

// HeaderPassword carries the admin password on requests when enforcement
// is on.
const HeaderPassword = "X-Admin-Password"

// Gate holds the configured secret: a plaintext password, a bcrypt hash,
// or neither. With neither configured every check fails.
type Gate struct {
	plain []byte
	hash  []byte
}

// New returns a Gate. When hash is set it takes precedence over plain.
func New(plain, hash string) (*Gate, error) {
	g := &Gate{}
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("admin password hash: %w", err)
		}
		g.hash = []byte(hash)
		return g, nil
	}
	if plain != "" {
		g.plain = []byte(plain)
	}
	return g, nil
}

// HashPassword returns the bcrypt hash of password for use as
// admin_password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(h), nil
}

// Check returns ErrUnauthorized unless password matches the secret.
func (g *Gate) Check(password string) error {
	switch {
	case g.hash != nil:
		if bcrypt.CompareHashAndPassword(g.hash, []byte(password)) != nil {
			return types.ErrUnauthorized
		}
		return nil
	case g.plain != nil:
		if subtle.ConstantTimeCompare([]byte(password), g.plain) != 1 {
			return types.ErrUnauthorized
		}
		return nil
	default:
		return types.ErrUnauthorized
	}
}

// Middleware rejects mutating requests whose X-Admin-Password header does
// not pass Check. GET, HEAD and OPTIONS pass through.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if err := g.Check(r.Header.Get(HeaderPassword)); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
