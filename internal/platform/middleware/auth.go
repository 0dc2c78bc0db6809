package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "kvartal/pkg/domain"
	dErrors "kvartal/pkg/domain-errors"
	"kvartal/pkg/platform/httputil"
	"kvartal/pkg/requestcontext"
)

//go:generate mockgen -source=auth.go -destination=mocks/mocks.go -package=mocks

// TokenClaims is what the identity collaborator's validator yields for an
// access token.
type TokenClaims struct {
	UserID    string
	ActorName string
	JTI       string
}

// JWTValidator validates bearer tokens issued by the identity subsystem.
type JWTValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// TokenRevocationChecker reports whether a token has been revoked since issue.
type TokenRevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// FeatureChecker answers whether a user holds an administrative feature
// permission such as claims:view or claims:review.
type FeatureChecker interface {
	HasFeature(ctx context.Context, userID id.UserID, feature string) (bool, error)
}

// RequireAuth validates the bearer token, checks revocation, and stores the
// authenticated user in the request context.
func RequireAuth(validator JWTValidator, revocation TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestID,
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			if revocation != nil {
				revoked, err := revocation.IsRevoked(ctx, claims.JTI)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation",
						"request_id", requestID,
						"error", err,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to validate token"))
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - token revoked",
						"request_id", requestID,
						"jti", claims.JTI,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked"))
					return
				}
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed subject",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
				return
			}

			ctx = requestcontext.WithUserID(ctx, userID)
			if claims.ActorName != "" {
				ctx = requestcontext.WithActorName(ctx, claims.ActorName)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireFeature gates administrative routes on a feature permission.
// It must run after RequireAuth.
func RequireFeature(features FeatureChecker, feature string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := requestcontext.UserID(ctx)
			if userID.IsNil() {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			allowed, err := features.HasFeature(ctx, userID, feature)
			if err != nil {
				logger.ErrorContext(ctx, "feature check failed",
					"request_id", requestcontext.RequestID(ctx),
					"feature", feature,
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to check permissions"))
				return
			}
			if !allowed {
				logger.WarnContext(ctx, "forbidden - missing feature",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", userID,
					"feature", feature,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "missing required permission"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
