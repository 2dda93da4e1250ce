package ports

import "context"

type Resolver interface {
	Resolve(ctx context.Context, hostname string) (string, error)
}
