package resilience

import "context"

// Gate is a counting semaphore over all outbound provider calls. One gate is
// shared by embedding and generation so ingestion batches and live chat
// compete for the same provider budget.
type Gate struct {
	slots chan struct{}
}

func NewGate(size int) *Gate {
	if size <= 0 {
		size = 1
	}
	return &Gate{slots: make(chan struct{}, size)}
}

// Acquire blocks until a slot is free or ctx is done. A cancelled caller
// stops waiting without disturbing holders of other slots.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gate) Release() {
	select {
	case <-g.slots:
	default:
	}
}

// InFlight reports the number of currently held slots.
func (g *Gate) InFlight() int {
	return len(g.slots)
}

// Size reports the gate capacity.
func (g *Gate) Size() int {
	return cap(g.slots)
}
