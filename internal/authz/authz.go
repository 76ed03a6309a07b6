// Package authz declares the Authorization Oracle boundary (C11): a pure
// predicate the engine consumes, never implements fully — token parsing and
// role-based access policy are out of scope (spec §1). The HTTP edge wires
// a concrete Oracle (backed by whatever identity provider issues actors);
// this package also ships a minimal role-table Oracle for tests and
// single-tenant deployments.
package authz

// Actor is the caller identity the engine authorizes against. ClientID is
// empty for a platform-level actor (e.g. an internal scheduler).
type Actor struct {
	UserID   string
	ClientID string
	Role     string
}

// Decision is the oracle's answer: ok plus a human-readable reason for an
// audit log or an HTTP error body.
type Decision struct {
	OK     bool
	Reason string
}

// Oracle is the pure predicate boundary every write/read/channel-mutating
// path in the engine consults before acting.
type Oracle interface {
	CanWrite(actor Actor, clientID string) Decision
	CanRead(actor Actor, clientID string) Decision
	CanManageChannel(actor Actor, clientID string) Decision
}

// RoleTable is a minimal Oracle keyed on Actor.Role, sufficient for a
// single-tenant deployment or for tests; a production deployment replaces
// it with a policy service.
type RoleTable struct {
	// AdminRole identifies the client-admin role permitted to manage a
	// project's ingestion channel (spec §4.8's switchInputType guard).
	AdminRole string
	// WriteRoles are roles permitted to write entries for their own client.
	WriteRoles map[string]bool
}

// ChannelRole is the actor role the HTTP edge assigns to the unauthenticated
// API/IoT ingestion channels (spec §6 marks those routes "no auth"); the
// real gate on those paths is internal/ingestion.Controller.VerifyChannel,
// not this oracle, so the role is granted write access unconditionally.
const ChannelRole = "channel"

// DefaultRoleTable matches the roles named in spec §4.8/§6: a client-admin
// may do everything, a client-operator may write and read but not manage
// the channel, a client-viewer may only read, and the channel role covers
// unauthenticated API/IoT pushes.
func DefaultRoleTable() RoleTable {
	return RoleTable{
		AdminRole:  "client-admin",
		WriteRoles: map[string]bool{"client-admin": true, "client-operator": true, ChannelRole: true},
	}
}

func (t RoleTable) sameClient(actor Actor, clientID string) bool {
	return actor.ClientID != "" && actor.ClientID == clientID
}

// CanWrite allows a client-admin or client-operator acting within their own
// client.
func (t RoleTable) CanWrite(actor Actor, clientID string) Decision {
	if !t.sameClient(actor, clientID) {
		return Decision{OK: false, Reason: "actor does not belong to this client"}
	}
	if !t.WriteRoles[actor.Role] {
		return Decision{OK: false, Reason: "role " + actor.Role + " cannot write"}
	}
	return Decision{OK: true}
}

// CanRead allows any role belonging to the client.
func (t RoleTable) CanRead(actor Actor, clientID string) Decision {
	if !t.sameClient(actor, clientID) {
		return Decision{OK: false, Reason: "actor does not belong to this client"}
	}
	return Decision{OK: true}
}

// CanManageChannel allows only the client-admin role.
func (t RoleTable) CanManageChannel(actor Actor, clientID string) Decision {
	if !t.sameClient(actor, clientID) {
		return Decision{OK: false, Reason: "actor does not belong to this client"}
	}
	if actor.Role != t.AdminRole {
		return Decision{OK: false, Reason: "only a client-admin may manage the ingestion channel"}
	}
	return Decision{OK: true}
}

var _ Oracle = RoleTable{}
