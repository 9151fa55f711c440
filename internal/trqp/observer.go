package trqp

import "context"

// QueryType distinguishes the two TRQP queries
type QueryType string

const (
	QueryAuthorization QueryType = "authorization"
	QueryRecognition   QueryType = "recognition"
)

// QueryObserver creates request-scoped probes for queries
type QueryObserver interface {
	QueryStarted(ctx context.Context, query QueryType, req *Request) (context.Context, QueryProbe)
}

// QueryProbe receives the events of a single query. Exactly one of
// Decided or Failed is called, then End.
type QueryProbe interface {
	Decided(allowed bool, message string)
	Failed(err error)
	End()
}

// NoOpQueryObserver discards all events
type NoOpQueryObserver struct{}

func (NoOpQueryObserver) QueryStarted(ctx context.Context, query QueryType, req *Request) (context.Context, QueryProbe) {
	return ctx, noOpQueryProbe{}
}

type noOpQueryProbe struct{}

func (noOpQueryProbe) Decided(allowed bool, message string) {}
func (noOpQueryProbe) Failed(err error) {}
func (noOpQueryProbe) End() {}
