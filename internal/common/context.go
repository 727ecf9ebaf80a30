package common

import "context"

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyOrgName   contextKey = "org_name"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithOrgName adds the organization name to the context
func WithOrgName(ctx context.Context, orgName string) context.Context {
	return context.WithValue(ctx, ContextKeyOrgName, orgName)
}

// OrgNameFromContext extracts the organization name from context
func OrgNameFromContext(ctx context.Context) string {
	if orgName, ok := ctx.Value(ContextKeyOrgName).(string); ok {
		return orgName
	}
	return ""
}
