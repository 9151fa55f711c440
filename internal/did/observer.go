package did

import "context"

// ResolverObserver creates request-scoped probes for DID resolutions
type ResolverObserver interface {
	ResolutionStarted(ctx context.Context, did string) (context.Context, ResolutionProbe)
}

// ResolutionProbe receives the events of a single resolution.
// End is always called last.
type ResolutionProbe interface {
	CacheHit()
	CacheMiss()
	FetchFailed(url string, err error)
	PlaceholderUsed(reason string)
	End(result *ResolutionResult)
}

// NoOpResolverObserver discards all events
type NoOpResolverObserver struct{}

func (NoOpResolverObserver) ResolutionStarted(ctx context.Context, did string) (context.Context, ResolutionProbe) {
	return ctx, noOpResolutionProbe{}
}

type noOpResolutionProbe struct{}

func (noOpResolutionProbe) CacheHit() {}
func (noOpResolutionProbe) CacheMiss() {}
func (noOpResolutionProbe) FetchFailed(url string, err error) {}
func (noOpResolutionProbe) PlaceholderUsed(reason string) {}
func (noOpResolutionProbe) End(result *ResolutionResult) {}

// NewCompositeResolverObserver fans every event out to all observers
func NewCompositeResolverObserver(observers ...ResolverObserver) ResolverObserver {
	return compositeResolverObserver(observers)
}

type compositeResolverObserver []ResolverObserver

func (c compositeResolverObserver) ResolutionStarted(ctx context.Context, did string) (context.Context, ResolutionProbe) {
	probes := make(compositeResolutionProbe, 0, len(c))
	for _, o := range c {
		var p ResolutionProbe
		ctx, p = o.ResolutionStarted(ctx, did)
		probes = append(probes, p)
	}
	return ctx, probes
}

type compositeResolutionProbe []ResolutionProbe

func (c compositeResolutionProbe) CacheHit() {
	for _, p := range c {
		p.CacheHit()
	}
}

func (c compositeResolutionProbe) CacheMiss() {
	for _, p := range c {
		p.CacheMiss()
	}
}

func (c compositeResolutionProbe) FetchFailed(url string, err error) {
	for _, p := range c {
		p.FetchFailed(url, err)
	}
}

func (c compositeResolutionProbe) PlaceholderUsed(reason string) {
	for _, p := range c {
		p.PlaceholderUsed(reason)
	}
}

func (c compositeResolutionProbe) End(result *ResolutionResult) {
	for _, p := range c {
		p.End(result)
	}
}
