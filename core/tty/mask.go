package tty

import (
	"os"
	"sync"
)

// Mask defers signal handling the way a process signal mask does.
//
// Signals arrive on channels in Go, so "handling" a signal means calling
// Deliver with the handler. While a signal is blocked, Deliver waits until it
// is unblocked; Block waits for any handler already running to return.
// Blocking is idempotent: a blocked signal stays blocked until Unblock.
type Mask struct {
	mu    sync.Mutex
	gates map[os.Signal]*gate
}

type gate struct {
	cond       *sync.Cond
	blocked    bool
	delivering bool
}

func (m *Mask) gate(sig os.Signal) *gate {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gates == nil {
		m.gates = make(map[os.Signal]*gate)
	}
	g, ok := m.gates[sig]
	if !ok {
		g = &gate{cond: sync.NewCond(&sync.Mutex{})}
		m.gates[sig] = g
	}
	return g
}

// Block holds back delivery of sig.
func (m *Mask) Block(sig os.Signal) {
	g := m.gate(sig)
	g.cond.L.Lock()
	defer g.cond.L.Unlock()

	for g.delivering {
		g.cond.Wait()
	}
	g.blocked = true
}

// Unblock releases sig, running any delivery that was held back.
func (m *Mask) Unblock(sig os.Signal) {
	g := m.gate(sig)
	g.cond.L.Lock()
	defer g.cond.L.Unlock()

	g.blocked = false
	g.cond.Broadcast()
}

// Blocked reports whether sig is currently blocked.
func (m *Mask) Blocked(sig os.Signal) bool {
	g := m.gate(sig)
	g.cond.L.Lock()
	defer g.cond.L.Unlock()
	return g.blocked
}

// Deliver runs handler for sig once sig is not blocked.
func (m *Mask) Deliver(sig os.Signal, handler func()) {
	g := m.gate(sig)
	g.cond.L.Lock()
	for g.blocked || g.delivering {
		g.cond.Wait()
	}
	g.delivering = true
	g.cond.L.Unlock()

	defer func() {
		g.cond.L.Lock()
		g.delivering = false
		g.cond.Broadcast()
		g.cond.L.Unlock()
	}()

	handler()
}
