package auth

import "context"

const (
	RoleEmployee = "employee"
	RoleReviewer = "reviewer"
)

// Roles lists every assignable role, in enum order.
var Roles = []string{RoleEmployee, RoleReviewer}

func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Actor is the authenticated identity attached to a request. It is the
// only actor kind in this domain; audit entries reference it by type+id.
type Actor struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (a *Actor) IsEmployee() bool {
	return a != nil && a.Role == RoleEmployee
}

func (a *Actor) IsReviewer() bool {
	return a != nil && a.Role == RoleReviewer
}

type ctxKey string

const contextActorKey ctxKey = "actor"

func ActorFromContext(ctx context.Context) (*Actor, bool) {
	a, ok := ctx.Value(contextActorKey).(*Actor)
	return a, ok && a != nil
}

func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, contextActorKey, actor)
}
