package auth

import (
	"github.com/dom/taskflow/internal/domain"
	"github.com/google/uuid"
)

// Operation is an action a caller wants to perform on a task.
type Operation string

const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// AuthorizeTaskAccess decides whether claims may perform op on task.
//
// Read, update and delete are allowed for admins and for the task's owner.
// Create is always allowed, but task.OwnerID is rewritten to the effective
// owner: a non-admin always creates for itself, whatever owner it asked for.
func AuthorizeTaskAccess(claims *Claims, task *domain.Task, op Operation) error {
	if claims == nil || task == nil {
		return domain.ErrForbidden
	}

	switch op {
	case OpCreate:
		var requested *uuid.UUID
		if task.OwnerID != uuid.Nil {
			requested = &task.OwnerID
		}
		task.OwnerID = EffectiveOwner(claims, requested)
		return nil
	case OpRead, OpUpdate, OpDelete:
		switch claims.Role {
		case domain.RoleAdmin:
			return nil
		case domain.RoleUser:
			if task.OwnerID == claims.UserID {
				return nil
			}
			return domain.ErrForbidden
		default:
			return domain.ErrForbidden
		}
	default:
		return domain.ErrForbidden
	}
}

// EffectiveOwner resolves who owns a task created by claims.
func EffectiveOwner(claims *Claims, requested *uuid.UUID) uuid.UUID {
	switch claims.Role {
	case domain.RoleAdmin:
		if requested != nil && *requested != uuid.Nil {
			return *requested
		}
		return claims.UserID
	default:
		return claims.UserID
	}
}

// AuthorizeAdminOnly fails with ErrForbidden unless claims belong to an admin.
func AuthorizeAdminOnly(claims *Claims) error {
	if claims == nil {
		return domain.ErrForbidden
	}
	switch claims.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleUser:
		return domain.ErrForbidden
	default:
		return domain.ErrForbidden
	}
}

// ScopeTaskFilter restricts a listing to what claims may see. Non-admins
// only ever see their own tasks; admins keep whatever owner filter they set.
func ScopeTaskFilter(claims *Claims, filter domain.TaskFilter) domain.TaskFilter {
	switch claims.Role {
	case domain.RoleAdmin:
		return filter
	default:
		owner := claims.UserID
		filter.OwnerID = &owner
		return filter
	}
}
