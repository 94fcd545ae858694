package domain

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusPrepared  Status = "prepared"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Role is the resolved staff role of the actor requesting a transition.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleKitchen Role = "kitchen"
	RoleNone    Role = "none"
)

// Reasons attached to a rejected Decision.
const (
	ReasonNoop          = "status already applied"
	ReasonTerminal      = "order is in a terminal status"
	ReasonIllegal       = "transition is not allowed"
	ReasonUnauthorized  = "role may not request this status"
	ReasonUnknownStatus = "unknown status"
)

var validTransitions = map[Status][]Status{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusPrepared, StatusCancelled},
	StatusPrepared:  {StatusCompleted},
	StatusCompleted: {},
	StatusCancelled: {},
}

var roleTargets = map[Role][]Status{
	RoleKitchen: {StatusPreparing, StatusPrepared, StatusCancelled},
	RoleAdmin:   {StatusPreparing, StatusPrepared, StatusCompleted, StatusCancelled},
}

var statusLabels = map[Status]string{
	StatusPending:   "Order Received",
	StatusPreparing: "Being Prepared",
	StatusPrepared:  "Ready to Serve",
	StatusCompleted: "Completed",
	StatusCancelled: "Cancelled",
}

// Decision is the outcome of Validate.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func reject(reason string) Decision { return Decision{Reason: reason} }

// Noop reports whether the rejection is the idempotent "already there" case.
func (d Decision) Noop() bool { return !d.Allowed && d.Reason == ReasonNoop }

// Validate decides whether role may move an order from current to requested.
func Validate(current, requested Status, role Role) Decision {
	if !current.Valid() || !requested.Valid() {
		return reject(ReasonUnknownStatus)
	}
	if current == requested {
		return reject(ReasonNoop)
	}
	if current.Terminal() {
		return reject(ReasonTerminal)
	}
	if !contains(validTransitions[current], requested) {
		return reject(ReasonIllegal)
	}
	if !contains(roleTargets[role], requested) {
		return reject(ReasonUnauthorized)
	}
	return allow()
}

func contains(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Active reports whether the kitchen still has work on an order in this status.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusPreparing || s == StatusPrepared
}

// Rank orders statuses along the lifecycle; terminal statuses share the top rank.
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusPreparing:
		return 1
	case StatusPrepared:
		return 2
	case StatusCompleted, StatusCancelled:
		return 3
	default:
		return -1
	}
}

// Supersedes reports whether s is a later lifecycle point than prev.
func (s Status) Supersedes(prev Status) bool {
	if prev.Terminal() {
		return false
	}
	return s.Rank() > prev.Rank()
}

// Label is the customer-facing status text.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseRole maps a stored role string to a Role, defaulting to RoleNone.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleKitchen:
		return Role(s)
	default:
		return RoleNone
	}
}

// StatusLog represents a log entry for order status changes
type StatusLog struct {
	ID        int64
	OrderID   uuid.UUID
	Status    Status
	ChangedBy string
	ChangedAt time.Time
}
