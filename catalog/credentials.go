package catalog

import "os"

// CredentialResolver answers whether a named credential or config value is
// currently usable. Availability is re-evaluated on every query, never
// cached, since credentials may be supplied or revoked between requests.
type CredentialResolver interface {
	// Resolve returns true when a non-empty value is configured under name
	Resolve(name string) bool
}

// EnvResolver resolves credential names against process environment variables.
type EnvResolver struct{}

// Resolve implements CredentialResolver
func (EnvResolver) Resolve(name string) bool {
	v, ok := os.LookupEnv(name)
	return ok && v != ""
}
