package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/common"
	"github.com/tansive/francine/internal/common/httpx"
)

const tokenIssuer = "francine"

// IssueToken signs an HS256 token for subject that expires after ttl.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrInvalidToken.Msg("no API secret configured")
	}
	jti, err := common.NewShortID(common.IDToken)
	if err != nil {
		return "", ErrServerError.MsgErr("unable to create token id", err)
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subject,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", ErrServerError.MsgErr("unable to sign token", err)
	}
	return signed, nil
}

// ValidateToken checks signature, issuer and expiry and returns the subject.
func ValidateToken(secret, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized.Msg("missing bearer token")
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", ErrInvalidToken.Err(err)
	}
	if !parsed.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

type subjectKey struct{}

// SubjectFromContext returns the authenticated token subject, or "".
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// RequireToken rejects requests without a valid bearer token. An empty
// secret disables the check.
func RequireToken(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				token = ""
			}
			subject, err := ValidateToken(secret, strings.TrimSpace(token))
			if err != nil {
				log.Ctx(r.Context()).Warn().Err(err).Msg("rejected request")
				httpx.SendError(w, ErrUnauthorized.Msg("invalid or missing bearer token"))
				return
			}
			ctx := context.WithValue(r.Context(), subjectKey{}, subject)
			ctx = log.Ctx(ctx).With().Str("subject", subject).Logger().WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
