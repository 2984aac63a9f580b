package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const (
	keyPrefixKey    contextKey = "key_prefix"
	apiKeyScopesKey contextKey = "api_key_scopes"
	userTokenKey    contextKey = "user_token"
)

func setKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

func setScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, apiKeyScopesKey, scopes)
}

func getScopes(r *http.Request) []string {
	scopes, _ := r.Context().Value(apiKeyScopesKey).([]string)
	return scopes
}

func setUserToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, userTokenKey, token)
}

// GetUserToken returns the traveler's backend session token carried on the
// request, if any. Handlers forward it unmodified to the core backend; an
// absent or stale token surfaces there as an authorization failure.
func GetUserToken(r *http.Request) string {
	token, _ := r.Context().Value(userTokenKey).(string)
	return token
}

// SetUserToken plants a user token in the context. Exported for handler tests.
func SetUserToken(ctx context.Context, token string) context.Context {
	return setUserToken(ctx, token)
}

// ExportedKeyPrefixKey returns the context key for key_prefix (for testing).
func ExportedKeyPrefixKey() contextKey {
	return keyPrefixKey
}
