package orchestrator

import "sync"

// exposureGate admits tasks into the pool only while the sum of in-flight
// worst-case sizings stays under the cap. It is the single piece of state
// shared across tasks, so acquire/release are the only synchronized paths.
type exposureGate struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	cap      float64
	inFlight float64
}

func newExposureGate(cap float64) *exposureGate {
	g := &exposureGate{cap: cap}
	g.notFull = sync.NewCond(&g.mu)
	return g
}

// acquire blocks until the amount fits under the cap. A task larger than the
// whole cap is still admitted when it would run alone, otherwise it could
// never run at all.
func (g *exposureGate) acquire(amount float64) {
	if g.cap <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.inFlight > 0 && g.inFlight+amount > g.cap {
		g.notFull.Wait()
	}
	g.inFlight += amount
}

func (g *exposureGate) release(amount float64) {
	if g.cap <= 0 {
		return
	}
	g.mu.Lock()
	g.inFlight -= amount
	g.mu.Unlock()
	g.notFull.Broadcast()
}

func (g *exposureGate) current() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}
