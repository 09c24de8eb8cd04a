// Package instrument records store mutation outcomes as OpenTelemetry metrics.
package instrument

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Outcome classifies what a mutation request did to the store.
type Outcome string

const (
	// Applied means the store state changed and subscribers were notified.
	Applied Outcome = "applied"
	// Noop means the request was valid but already satisfied.
	Noop Outcome = "noop"
	// Rejected means the request violated an invariant and was dropped.
	Rejected Outcome = "rejected"
)

// Mutations counts mutation requests per store, operation and outcome.
type Mutations struct {
	store   attribute.KeyValue
	counter metric.Int64Counter
}

// NewMutations creates the counter on the given provider. A nil provider
// disables recording.
func NewMutations(mp metric.MeterProvider, store string) (*Mutations, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	counter, err := mp.Meter("github.com/xenking/kart-showroom/store").Int64Counter(
		"showroom.store.mutations",
		metric.WithDescription("Store mutation requests by operation and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create mutation counter")
	}
	return &Mutations{
		store:   attribute.String("store", store),
		counter: counter,
	}, nil
}

// Discard returns a Mutations that records nothing.
func Discard() *Mutations {
	m, _ := NewMutations(nil, "")
	return m
}

// Record adds one request to the counter.
func (m *Mutations) Record(ctx context.Context, op string, outcome Outcome) {
	m.counter.Add(ctx, 1, metric.WithAttributes(
		m.store,
		attribute.String("op", op),
		attribute.String("outcome", string(outcome)),
	))
}
