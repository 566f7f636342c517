package httpserver

import (
	"net/http"

	"github.com/ttalvitie/retrojsvice/internal/secrets"
)

// checkAuth reports whether r satisfies the configured HTTP Basic
// credentials. An empty expected user means auth is disabled and every
// request passes. Comparison is constant-time per spec.md §4.2.
func checkAuth(r *http.Request, expectUser, expectPass string) bool {
	if expectUser == "" {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := secrets.Equal(user, expectUser)
	passOK := secrets.Equal(pass, expectPass)
	return userOK && passOK
}

func writeAuthChallenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="retrojsvice"`)
	http.Error(w, "401 unauthorized", http.StatusUnauthorized)
}
