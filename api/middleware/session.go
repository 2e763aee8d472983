package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/pizzeria-backend/api/responses"
	"github.com/angelmondragon/pizzeria-backend/internal/sessions"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
)

// SessionHeader carries the guest session id in both directions.
const SessionHeader = "X-Session-Id"

// SessionResolver returns the live session for an id.
type SessionResolver interface {
	Get(ctx context.Context, id string) (*sessions.Session, error)
}

// Session resolves the visitor session, minting a new id when the header is
// absent. The id is echoed back so the client can keep it.
func Session(registry SessionResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(SessionHeader))
			if id == "" {
				id = sessions.NewID()
			}

			sess, err := registry.Get(r.Context(), id)
			if err != nil {
				if errors.Is(err, sessions.ErrInvalidID) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Validation("invalid session id", map[string]string{SessionHeader: "must be 8-64 url safe characters"}))
					return
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session"))
				return
			}

			w.Header().Set(SessionHeader, sess.ID)
			ctx := WithSession(r.Context(), sess)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sess.ID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
