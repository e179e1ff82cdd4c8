package order

import (
	"errors"
	"fmt"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

// ErrActorIsNotConstructed is returned when a zero-value Actor is used.
var ErrActorIsNotConstructed = errors.New("actor must be created via NewActor or SystemActor")

// systemActorID identifies background jobs and webhooks in status history.
var systemActorID = func() kernel.UUID {
	id, err := kernel.UUIDFromString("00000000-0000-0000-0000-00000000f10e")
	if err != nil {
		panic(err)
	}
	return id
}()

// Role is the capability class of whoever requests a transition.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleKitchen  Role = "KITCHEN"
	RoleWaiter   Role = "WAITER"
	RoleCourier  Role = "COURIER"
	RoleAdmin    Role = "ADMIN"
	RoleSystem   Role = "SYSTEM"
)

// RoleFromString parses a role name.
func RoleFromString(s string) (Role, error) {
	r := Role(s)
	if err := r.Validate(); err != nil {
		return "", err
	}
	return r, nil
}

// Validate rejects unknown roles.
func (r Role) Validate() error {
	switch r {
	case RoleCustomer, RoleKitchen, RoleWaiter, RoleCourier, RoleAdmin, RoleSystem:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("role", fmt.Errorf("%q is not a valid role", string(r)))
	}
}

func (r Role) String() string {
	return string(r)
}

// Actor is the identity recorded on every history entry.
type Actor struct {
	id    kernel.UUID
	role  Role
	guard guard.ConstructorGuard
}

// NewActor validates id and role.
func NewActor(id kernel.UUID, role Role) (Actor, error) {
	if err := errors.Join(id.Validate(), role.Validate()); err != nil {
		return Actor{}, err
	}
	return Actor{id: id, role: role, guard: guard.NewConstructorGuard()}, nil
}

// SystemActor is used by jobs, webhooks and other automated requests.
func SystemActor() Actor {
	return Actor{id: systemActorID, role: RoleSystem, guard: guard.NewConstructorGuard()}
}

// Validate returns ErrActorIsNotConstructed for the zero value.
func (a Actor) Validate() error {
	return a.guard.Validate(ErrActorIsNotConstructed)
}

// ID is the actor's user id, or the fixed system id for automated requests.
func (a Actor) ID() kernel.UUID {
	return a.id
}

func (a Actor) Role() Role {
	return a.role
}

// Is reports whether a has the given role.
func (a Actor) Is(role Role) bool {
	return a.role == role
}

// IsEqual compares both id and role.
func (a Actor) IsEqual(other Actor) bool {
	return a.id.IsEqual(other.id) && a.role == other.role
}

func (a Actor) String() string {
	return fmt.Sprintf("%s:%s", a.role, a.id)
}
