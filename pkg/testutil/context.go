package testutil

import (
	"net/http"
	"time"

	id "kvartal/pkg/domain"
	"kvartal/pkg/requestcontext"
)

// WithUserID injects an authenticated user into the request context, the way
// the auth middleware would. Invalid UUIDs are silently ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
}

// WithActor injects a user ID and display name, matching a fully
// authenticated request.
func WithActor(req *http.Request, userID id.UserID, name string) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithActorName(ctx, name)
	return req.WithContext(ctx)
}

// WithRequestTime pins the request clock so tests can assert on timestamps.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
