package pickup

import (
	"context"
	"sort"
	"sync"
	"time"

	"kurs/internal/events"
	"kurs/internal/modules/collector"
	"kurs/internal/modules/notify"
	"kurs/internal/types"
)

type memRepo struct {
	mu     sync.Mutex
	rows   map[types.ID]*Pickup
	events []Event
}

func newMemRepo() *memRepo { return &memRepo{rows: map[types.ID]*Pickup{}} }

func clonePickup(p *Pickup) *Pickup {
	cp := *p
	if p.CollectorID != nil {
		c := *p.CollectorID
		cp.CollectorID = &c
	}
	cp.WasteTypes = append([]WasteType(nil), p.WasteTypes...)
	cp.Photos = append([]string(nil), p.Photos...)
	return &cp
}

func (m *memRepo) Create(_ context.Context, p *Pickup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[p.ID] = clonePickup(p)
	return nil
}

func (m *memRepo) Get(_ context.Context, id types.ID) (*Pickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePickup(p), nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id types.ID, from, to Status, version int, collectorID *types.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok || p.Status != from || p.StatusVersion != version {
		return false, nil
	}
	p.Status = to
	p.StatusVersion++
	if collectorID != nil {
		c := *collectorID
		p.CollectorID = &c
	} else {
		p.CollectorID = nil
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *memRepo) AppendEvent(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func (m *memRepo) ListByStatus(_ context.Context, status Status, limit int) ([]Pickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Pickup
	for _, p := range m.rows {
		if p.Status == status {
			out = append(out, *clonePickup(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) ListByCollector(_ context.Context, collectorID types.ID, statuses []Status) ([]Pickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Pickup
	for _, p := range m.rows {
		if p.CollectorID == nil || *p.CollectorID != collectorID {
			continue
		}
		for _, st := range statuses {
			if p.Status == st {
				out = append(out, *clonePickup(p))
			}
		}
	}
	return out, nil
}

func (m *memRepo) ListByRequester(_ context.Context, requesterID types.ID, limit int) ([]Pickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Pickup
	for _, p := range m.rows {
		if p.RequesterID == requesterID {
			out = append(out, *clonePickup(p))
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) Earnings(_ context.Context, collectorID types.ID) (*Earnings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := &Earnings{CollectorID: collectorID, Total: types.IDR(0)}
	for _, p := range m.rows {
		if p.Status == StatusCompleted && p.CollectorID != nil && *p.CollectorID == collectorID {
			e.Completed++
			e.Total.Amount += p.Fee.Amount
		}
	}
	return e, nil
}

func (m *memRepo) transitions(id types.ID) []Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Status
	for _, e := range m.events {
		if e.PickupID == id {
			out = append(out, e.ToStatus)
		}
	}
	return out
}

type fakePayments struct {
	mu   sync.Mutex
	paid map[types.ID]bool
}

func (f *fakePayments) HasCompleted(_ context.Context, id types.ID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paid[id], nil
}

func (f *fakePayments) markPaid(id types.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.paid == nil {
		f.paid = map[types.ID]bool{}
	}
	f.paid[id] = true
}

type fixedFee struct{}

func (fixedFee) Quote(context.Context, string) (types.Money, error) { return types.IDR(10000), nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

type pushed struct {
	to  types.ID
	typ notify.Type
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []pushed
}

func (r *recordingNotifier) Notify(_ context.Context, userID types.ID, msg notify.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, pushed{to: userID, typ: msg.Type})
}

func (r *recordingNotifier) NotifyMany(ctx context.Context, userIDs []types.ID, msg notify.Message) {
	for _, id := range userIDs {
		r.Notify(ctx, id, msg)
	}
}

func (r *recordingNotifier) types() []notify.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Type, len(r.sent))
	for i, p := range r.sent {
		out[i] = p.typ
	}
	return out
}

type staticCollectors []collector.Nearby

func (s staticCollectors) NearbyAvailable(context.Context, types.Point, float64) ([]collector.Nearby, error) {
	return s, nil
}

type staticGeocoder string

func (g staticGeocoder) ReverseGeocode(context.Context, types.Point) (string, error) {
	return string(g), nil
}
