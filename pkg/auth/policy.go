package auth

import "github.com/booklend/booklend/pkg/models"

// Policy functions: explicit allow/deny rules taking the caller identity
// and the target resource identifier. Evaluated by the middleware before any
// handler body runs.

// CanListUsers: directory listing is librarian-only.
func CanListUsers(id *Identity) bool {
	return id.HasRole(models.RoleLibrarian)
}

// CanManageUsers: creating and deleting users is librarian-only.
func CanManageUsers(id *Identity) bool {
	return id.HasRole(models.RoleLibrarian)
}

// CanViewUser: a librarian may read any profile, everyone else only their
// own. Also gates the loan list of a user.
func CanViewUser(id *Identity, username string) bool {
	return id.HasRole(models.RoleLibrarian) || id.Username == username
}

// CanManageLoan: borrow and return are strictly self-service. A librarian
// cannot act on another user's behalf through this surface.
func CanManageLoan(id *Identity, username string) bool {
	return id.Username == username
}
