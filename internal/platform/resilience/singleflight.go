package resilience

import "sync"

// SingleFlight collapses concurrent calls for the same key into one. Several
// phase jobs polling the same fixture in the same instant share one provider
// round trip; the shared flag tells callers their result was someone else's
// fetch.
type SingleFlight struct {
	mu       sync.Mutex
	inFlight map[string]*flightResult
}

type flightResult struct {
	done chan struct{}
	val  any
	err  error
}

func (g *SingleFlight) Do(key string, fn func() (any, error)) (any, error, bool) {
	g.mu.Lock()
	if g.inFlight == nil {
		g.inFlight = make(map[string]*flightResult)
	}

	if r, ok := g.inFlight[key]; ok {
		g.mu.Unlock()
		<-r.done
		return r.val, r.err, true
	}

	r := &flightResult{done: make(chan struct{})}
	g.inFlight[key] = r
	g.mu.Unlock()

	r.val, r.err = fn()
	close(r.done)

	g.mu.Lock()
	delete(g.inFlight, key)
	g.mu.Unlock()

	return r.val, r.err, false
}
