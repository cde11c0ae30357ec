// Package handlers contains the HTTP handlers of the tubepost API. Each
// handler owns a group of routes and depends on small interfaces satisfied
// by the service packages, so tests can drive it with recording fakes.
package handlers

import (
	"net/http"

	"tubepost/internal/types"
)

// actorFrom returns the authenticated caller. The auth middleware guarantees
// an actor on every non-public route; a missing one is answered with 401.
func actorFrom(r *http.Request) (types.Actor, error) {
	actor, ok := types.GetActor(r.Context())
	if !ok || actor.ID == "" {
		return types.Actor{}, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication token is required", nil)
	}
	return actor, nil
}
