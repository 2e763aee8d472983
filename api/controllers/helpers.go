package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/pizzeria-backend/api/middleware"
	"github.com/angelmondragon/pizzeria-backend/api/responses"
	"github.com/angelmondragon/pizzeria-backend/internal/sessions"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox"
)

// availabilityRequest toggles a flavor or product.
type availabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

func sessionOrError(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (*sessions.Session, bool) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session context missing"))
		return nil, false
	}
	return sess, true
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Validation("invalid identifier", map[string]string{name: "must be a valid uuid"})
	}
	return id, nil
}

func staffActor(r *http.Request) outbox.ActorRef {
	return outbox.ActorRef{
		UserID: middleware.UserIDFromContext(r.Context()),
		Role:   middleware.RoleFromContext(r.Context()),
	}
}
