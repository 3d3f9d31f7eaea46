package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joeydtaylor/steeze-command/pkg/command"
)

type ticket struct {
	id        string
	component string
	h         command.Handle
	touched   time.Time
}

// Tickets keeps handles produced for remote callers so they can poll
// completion. A ticket nobody has polled for ttl is dropped.
type Tickets struct {
	mu   sync.Mutex
	ttl  time.Duration
	byID map[string]*ticket
	now  func() time.Time
}

func NewTickets(ttl time.Duration) *Tickets {
	return &Tickets{ttl: ttl, byID: map[string]*ticket{}, now: time.Now}
}

func (t *Tickets) Put(component string, h command.Handle) string {
	id := uuid.NewString()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweepLocked()
	t.byID[id] = &ticket{id: id, component: component, h: h, touched: t.now()}
	return id
}

func (t *Tickets) Get(id string) (*ticket, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tk, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	if t.expiredLocked(tk) {
		delete(t.byID, id)
		return nil, false
	}
	tk.touched = t.now()
	return tk, true
}

func (t *Tickets) Delete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.byID[id]
	delete(t.byID, id)
	return ok
}

func (t *Tickets) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}

func (t *Tickets) expiredLocked(tk *ticket) bool {
	return t.ttl > 0 && t.now().Sub(tk.touched) > t.ttl
}

func (t *Tickets) sweepLocked() {
	for id, tk := range t.byID {
		if t.expiredLocked(tk) {
			delete(t.byID, id)
		}
	}
}
