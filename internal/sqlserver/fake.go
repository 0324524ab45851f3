package sqlserver

import (
	"context"
	"fmt"
)

// Fake is an in-memory [Querier]. Results and Errors are keyed by the exact
// query text; an unknown query is an error. Calls records "Ping" and each
// query in order.
type Fake struct {
	PingErr error
	Results map[string][]Row
	Errors  map[string]error
	Calls   []string
}

// NewFake returns a ready-to-use [Fake].
func NewFake() *Fake {
	return &Fake{
		Results: make(map[string][]Row),
		Errors:  make(map[string]error),
	}
}

// Ping implements [Querier].
func (f *Fake) Ping(_ context.Context) error {
	f.Calls = append(f.Calls, "Ping")
	return f.PingErr
}

// Query implements [Querier].
func (f *Fake) Query(_ context.Context, query string) ([]Row, error) {
	f.Calls = append(f.Calls, query)
	if err, ok := f.Errors[query]; ok {
		return nil, err
	}
	rows, ok := f.Results[query]
	if !ok {
		return nil, fmt.Errorf("fake: no result registered for query")
	}
	return rows, nil
}

// Queries returns the recorded calls excluding pings.
func (f *Fake) Queries() []string {
	var out []string
	for _, c := range f.Calls {
		if c != "Ping" {
			out = append(out, c)
		}
	}
	return out
}

var _ Querier = (*Fake)(nil)
