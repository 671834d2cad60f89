package model

import "context"

// Source yields the final flow counters of a finished simulation run,
// ordered by FlowID.
type Source interface {
	Flows(ctx context.Context) ([]FlowRecord, error)
}
