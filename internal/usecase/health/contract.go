package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ObjectPinger checks object storage availability.
type ObjectPinger interface {
	Ping(ctx context.Context) error
}
