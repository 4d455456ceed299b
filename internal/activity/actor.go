package activity

import "context"

// Actor is the user on whose behalf an operation runs.
type Actor struct {
	ID        string
	Name      string
	AvatarURL string
	Role      string
}

type actorKey struct{}

// WithActor returns a context carrying actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored in ctx.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// SystemName is used for log entries when no user is known.
const SystemName = "System"
