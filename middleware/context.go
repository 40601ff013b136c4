package middleware

import "context"

// Context key type to avoid collisions
type contextKey string

const (
	// SubjectKey is the context key for the authenticated caller's subject
	SubjectKey contextKey = "subject"
)

// GetSubjectFromContext retrieves the authenticated subject from context.
// Empty when the request was not authenticated.
func GetSubjectFromContext(ctx context.Context) string {
	if val := ctx.Value(SubjectKey); val != nil {
		if subject, ok := val.(string); ok {
			return subject
		}
	}
	return ""
}

// WithSubject adds the authenticated subject to the context
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}
