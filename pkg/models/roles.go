package models

// Role names as issued by the identity provider's realm. Tokens carry them
// under realm_access.roles; the auth package maps each one to an internal
// authority with the RolePrefix convention.
const (
	RoleLibrarian = "LIBRARIAN"
)

// RolePrefix is prepended to every realm role when building authorities.
const RolePrefix = "ROLE_"
