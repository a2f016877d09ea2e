package testutil

import (
	"net/http"

	"leanquest/pkg/requestcontext"
)

// WithAuth stamps the request context the way the auth middleware would for an
// authenticated request. Empty values are skipped.
func WithAuth(req *http.Request, userID, tenantID, role string) *http.Request {
	ctx := req.Context()
	if userID != "" {
		ctx = requestcontext.WithUserID(ctx, userID)
	}
	if tenantID != "" {
		ctx = requestcontext.WithTenantID(ctx, tenantID)
	}
	if role != "" {
		ctx = requestcontext.WithRole(ctx, role)
	}
	return req.WithContext(ctx)
}

// WithSession adds a session ID to the request context.
func WithSession(req *http.Request, sessionID string) *http.Request {
	return req.WithContext(requestcontext.WithSessionID(req.Context(), sessionID))
}
