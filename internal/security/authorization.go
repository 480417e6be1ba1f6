package security

import (
	"fmt"

	"github.com/yourorg/stockledger/internal/domain"
)

// Operation names an API action that is gated by role.
type Operation string

const (
	OpListItems     Operation = "list_items"
	OpReadItem      Operation = "read_item"
	OpViewStats     Operation = "view_stats"
	OpViewProfile   Operation = "view_profile"
	OpCreateItem    Operation = "create_item"
	OpUpdateItem    Operation = "update_item"
	OpDeleteItem    Operation = "delete_item"
	OpViewAuditLogs Operation = "view_audit_logs"
)

// allowedRoles is the flat policy table. Membership in the listed set
// is required; the sets do not imply each other (admin/manager for
// create never includes viewer, and delete stays admin-only).
var allowedRoles = map[Operation][]domain.Role{
	OpListItems:     {domain.RoleAdmin, domain.RoleManager, domain.RoleViewer},
	OpReadItem:      {domain.RoleAdmin, domain.RoleManager, domain.RoleViewer},
	OpViewStats:     {domain.RoleAdmin, domain.RoleManager, domain.RoleViewer},
	OpViewProfile:   {domain.RoleAdmin, domain.RoleManager, domain.RoleViewer},
	OpCreateItem:    {domain.RoleAdmin, domain.RoleManager},
	OpUpdateItem:    {domain.RoleAdmin, domain.RoleManager},
	OpDeleteItem:    {domain.RoleAdmin},
	OpViewAuditLogs: {domain.RoleAdmin, domain.RoleManager},
}

// Allowed reports whether the role may perform the operation.
func Allowed(role domain.Role, op Operation) bool {
	for _, r := range allowedRoles[op] {
		if r == role {
			return true
		}
	}
	return false
}

// RequireRole returns ErrForbidden when the actor's role is not in the
// operation's allowed set.
func RequireRole(actor *domain.User, op Operation) error {
	if actor == nil {
		return domain.ErrUnauthenticated
	}
	if !Allowed(actor.Role, op) {
		return fmt.Errorf("%w: %s role cannot %s", domain.ErrForbidden, actor.Role, op)
	}
	return nil
}
