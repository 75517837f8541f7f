package auth

import (
	"net/http"

	pkgauth "github.com/BradenHooton/loginhistory/pkg/auth"
	pkghttp "github.com/BradenHooton/loginhistory/pkg/http"
)

// HookSecretHeader carries the shared secret on login hook requests
const HookSecretHeader = "X-Hook-Secret"

// HashHookSecret validates secret and returns the bcrypt hash to configure as HOOK_SECRET_HASH
func HashHookSecret(secret string) (string, error) {
	if err := pkgauth.ValidateSecret(secret); err != nil {
		return "", err
	}
	return pkgauth.HashSecret(secret)
}

// RequireHookSecret rejects requests whose X-Hook-Secret does not match secretHash
func RequireHookSecret(secretHash string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := r.Header.Get(HookSecretHeader)
			if secret == "" {
				pkghttp.WriteUnauthorized(w, "missing hook secret")
				return
			}

			if err := pkgauth.CompareSecret(secretHash, secret); err != nil {
				pkghttp.WriteUnauthorized(w, "invalid hook secret")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
