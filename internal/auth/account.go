package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/frahmantamala/crypto-settlement/internal"
)

type contextKey string

const accountContextKey contextKey = "account"

// Account is the resolved owner identity attached to a request. The
// settlement engine never reads it implicitly; handlers pull it from the
// context and pass the id to the service as an explicit parameter.
type Account struct {
	ID string
}

func ContextWithAccount(ctx context.Context, account *Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

func AccountFromContext(ctx context.Context) (*Account, bool) {
	account, ok := ctx.Value(accountContextKey).(*Account)
	if !ok || account == nil {
		return nil, false
	}
	return account, true
}

// Middleware validates the bearer token and stores the owning account in the
// request context. Token issuance lives with the identity service; this
// layer only verifies and extracts the subject.
func Middleware(tokenSecret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeUnauthorized(w, apperrors.ErrInvalidToken)
				return
			}

			accountID, err := parseAccountID(token, tokenSecret)
			if err != nil {
				logger.Warn("token rejected", "error", err, "path", r.URL.Path)
				writeUnauthorized(w, err)
				return
			}

			ctx := ContextWithAccount(r.Context(), &Account{ID: accountID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseAccountID(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperrors.ErrTokenExpired
		}
		return "", apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", apperrors.ErrInvalidToken
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", apperrors.ErrInvalidToken
	}
	return subject, nil
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 8 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return authHeader[7:]
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.IsAppError(err)
	if !ok {
		appErr = apperrors.ErrInvalidToken
	}
	status, body := appErr.ToHTTPResponse()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
