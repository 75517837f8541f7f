package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BradenHooton/loginhistory/internal/services"
	pkghttp "github.com/BradenHooton/loginhistory/pkg/http"
)

// maxLastLoginIDs caps one users-screen page worth of accounts
const maxLastLoginIDs = 999

// LastLoginServiceInterface defines the users-screen column contract
type LastLoginServiceInterface interface {
	Cells(ctx context.Context, users []services.UserRef) ([]services.LastLoginCell, error)
}

// LastLoginResponse is the users-screen "Last Login" column
type LastLoginResponse struct {
	Users []services.LastLoginCell `json:"users"`
}

// LastLoginHandler serves the last-login column of the host's users screen
type LastLoginHandler struct {
	service LastLoginServiceInterface
	logger  *slog.Logger
}

// NewLastLoginHandler creates a new LastLoginHandler
func NewLastLoginHandler(service LastLoginServiceInterface, logger *slog.Logger) *LastLoginHandler {
	return &LastLoginHandler{service: service, logger: logger}
}

// GetLastLogins handles GET /admin/users/last-login?ids=7:alice,8:bob,9
// The optional ":username" suffix enables the history_url row action. Usernames in ids
// cannot contain a comma; send those as repeated user=id:username params instead, which
// split on the first colon only.
func (h *LastLoginHandler) GetLastLogins(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	users := parseUserRefs(query.Get("ids"))
	for _, value := range query["user"] {
		if ref, ok := parseUserRef(value); ok {
			users = append(users, ref)
		}
	}
	if len(users) == 0 {
		pkghttp.WriteValidationError(w, "ids", "this field is required")
		return
	}
	if len(users) > maxLastLoginIDs {
		pkghttp.WriteValidationError(w, "ids", "too many accounts requested")
		return
	}

	cells, err := h.service.Cells(r.Context(), users)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to retrieve last logins")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LastLoginResponse{Users: cells})
}

func parseUserRefs(raw string) []services.UserRef {
	var users []services.UserRef
	for _, part := range strings.Split(raw, ",") {
		if ref, ok := parseUserRef(part); ok {
			users = append(users, ref)
		}
	}
	return users
}

// parseUserRef reads "id" or "id:username". The username keeps any further colons.
func parseUserRef(raw string) (services.UserRef, bool) {
	id, username, _ := strings.Cut(strings.TrimSpace(raw), ":")
	id = strings.TrimSpace(id)
	if id == "" {
		return services.UserRef{}, false
	}
	return services.UserRef{ID: id, Username: strings.TrimSpace(username)}, true
}
