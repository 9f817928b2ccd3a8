package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sklepio/storefront-backend/api/responses"
	"github.com/sklepio/storefront-backend/pkg/config"
	pkgerrors "github.com/sklepio/storefront-backend/pkg/errors"
	"github.com/sklepio/storefront-backend/pkg/logger"
)

const sessionIDHeader = "X-Session-Id"

// Session requires the anonymous cart session header and, when a bearer
// token is present, verifies it and attaches the customer identity. The
// storefront never issues tokens; a token that does not verify is rejected
// rather than downgraded to anonymous.
func Session(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sessionID := strings.TrimSpace(r.Header.Get(sessionIDHeader))
			if sessionID == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session id header is required"))
				return
			}
			ctx = WithSessionID(ctx, sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
				customerID, err := customerFromBearer(auth, cfg)
				if err != nil {
					responses.WriteError(ctx, logg, w, err)
					return
				}
				ctx = WithCustomerID(ctx, customerID)
				if logg != nil {
					ctx = logg.WithCustomerID(ctx, customerID.String())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func customerFromBearer(header string, cfg config.JWTConfig) (uuid.UUID, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "malformed authorization header")
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(parts[1], &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}

	customerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token subject is not a customer id")
	}
	return customerID, nil
}
