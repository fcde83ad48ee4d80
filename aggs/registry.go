package aggs

import "fmt"

// Registry maps wire tags to aggregators. Readers are handed a registry
// explicitly; there is no process wide registration.
type Registry struct {
	byName map[string]Aggregator
}

func NewRegistry(aggregators ...Aggregator) Registry {
	r := Registry{byName: make(map[string]Aggregator, len(aggregators))}
	for _, a := range aggregators {
		r.byName[a.Name()] = a
	}
	return r
}

// DefaultRegistry returns a registry holding every aggregator in this package.
func DefaultRegistry() Registry {
	return NewRegistry(
		NewConcatAgg(),
		NewSHA256Agg(),
		NewSHA256AggB64(),
		NewSHA3Agg(),
		NewBlake3Agg(),
	)
}

func (r Registry) Lookup(name string) (Aggregator, error) {
	a, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAggregator, name)
	}
	return a, nil
}
