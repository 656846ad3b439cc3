package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

// Auth checks a bearer API key against a bcrypt hash. The SHA-256 digest of
// the last key bcrypt accepted is kept so repeat requests skip bcrypt.
type Auth struct {
	hash     []byte
	log      *slog.Logger
	compare  func(hash, key []byte) error
	verified atomic.Pointer[[sha256.Size]byte]
}

// New builds the middleware. An empty hash lets every request through.
func New(apiKeyHash string, log *slog.Logger) *Auth {
	return &Auth{
		hash:    []byte(apiKeyHash),
		log:     log.With("component", "auth_middleware"),
		compare: bcrypt.CompareHashAndPassword,
	}
}

// HashKey returns the bcrypt hash to configure for key.
func HashKey(key string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if len(a.hash) == 0 {
			next(ctx)
			return
		}

		key, ok := strings.CutPrefix(ctx.Header("Authorization"), "Bearer ")
		if !ok || key == "" {
			a.log.Warn("missing bearer token", "path", ctx.URL().Path)
			a.deny(ctx)
			return
		}

		if !a.check(key) {
			a.log.Warn("invalid api key", "path", ctx.URL().Path)
			a.deny(ctx)
			return
		}

		next(ctx)
	}
}

func (a *Auth) check(key string) bool {
	digest := sha256.Sum256([]byte(key))
	if known := a.verified.Load(); known != nil && subtle.ConstantTimeCompare(known[:], digest[:]) == 1 {
		return true
	}

	if err := a.compare(a.hash, []byte(key)); err != nil {
		return false
	}
	a.verified.Store(&digest)
	return true
}

func (a *Auth) deny(ctx huma.Context) {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.SetStatus(http.StatusUnauthorized)
	if err := json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{"error": "Unauthorized"}); err != nil {
		a.log.Error("encode auth error", "error", err)
	}
}
