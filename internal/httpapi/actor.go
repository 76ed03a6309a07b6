package httpapi

import (
	"net/http"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	"github.com/GreonXpert/netreduction-engine/internal/authz"
)

// actorFromRequest builds the authz.Actor for a request. Token parsing and
// role-policy decisions are out of scope for this engine (spec §1) — the
// gateway in front of this service is assumed to have authenticated the
// caller and forwards the resolved identity as trusted headers, the same
// boundary internal/authz.Oracle documents as a pure predicate over an
// already-resolved Actor.
func actorFromRequest(r *http.Request) (authz.Actor, error) {
	userID := r.Header.Get("X-User-Id")
	clientID := r.Header.Get("X-Client-Id")
	role := r.Header.Get("X-User-Role")
	if userID == "" || clientID == "" || role == "" {
		return authz.Actor{}, apperr.New(apperr.Unauthenticated, "missing X-User-Id/X-Client-Id/X-User-Role headers")
	}
	return authz.Actor{UserID: userID, ClientID: clientID, Role: role}, nil
}

// unauthenticatedActor is used by the no-auth channels (API push, IoT
// telemetry) spec §6 explicitly marks "(no auth)"; the engine's channel
// controller, not the authorization oracle, is the guard on those paths.
func unauthenticatedActor(clientID string) authz.Actor {
	return authz.Actor{ClientID: clientID, Role: authz.ChannelRole}
}
