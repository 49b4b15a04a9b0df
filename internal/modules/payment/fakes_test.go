package payment

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"kurs/internal/events"
	"kurs/internal/modules/pickup"
	"kurs/internal/types"
	"kurs/internal/xendit"
)

type memRepo struct {
	mu      sync.Mutex
	intents []*Intent
}

func (m *memRepo) CreateIntent(_ context.Context, in *Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, old := range m.intents {
		if old.PickupID == in.PickupID && old.Status == StatusPending && old.SupersededAt == nil {
			at := in.CreatedAt
			old.SupersededAt = &at
		}
	}
	cp := *in
	m.intents = append(m.intents, &cp)
	return nil
}

func (m *memRepo) Latest(_ context.Context, pickupID types.ID) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.intents) - 1; i >= 0; i-- {
		if m.intents[i].PickupID == pickupID {
			cp := *m.intents[i]
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) Open(_ context.Context, pickupID types.ID) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range m.intents {
		if in.PickupID == pickupID && in.Status == StatusPending && in.SupersededAt == nil {
			cp := *in
			return &cp, nil
		}
	}
	return nil, ErrNoOpenIntent
}

func (m *memRepo) HasCompleted(_ context.Context, pickupID types.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range m.intents {
		if in.PickupID == pickupID && in.Status == StatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) Complete(_ context.Context, externalID string, at time.Time) (*Intent, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range m.intents {
		if in.ExternalID != externalID {
			continue
		}
		if in.Status == StatusPending {
			in.Status = StatusCompleted
			in.CompletedAt = &at
			cp := *in
			return &cp, true, nil
		}
		cp := *in
		return &cp, false, nil
	}
	return nil, false, nil
}

func (m *memRepo) ListSweepable(_ context.Context, from, to time.Time, limit int) ([]Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Intent
	for _, in := range m.intents {
		if in.Status == StatusPending && !in.CreatedAt.Before(from) && in.CreatedAt.Before(to) {
			out = append(out, *in)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CheckedAt, out[j].CheckedAt
		switch {
		case a == nil && b != nil:
			return true
		case a != nil && b == nil:
			return false
		case a != nil && !a.Equal(*b):
			return a.Before(*b)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) MarkChecked(_ context.Context, ids []types.ID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		for _, in := range m.intents {
			if in.ID == id {
				t := at
				in.CheckedAt = &t
			}
		}
	}
	return nil
}

func (m *memRepo) byExternalID(ref string) *Intent {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range m.intents {
		if in.ExternalID == ref {
			cp := *in
			return &cp
		}
	}
	return nil
}

type fakeProvider struct {
	mu        sync.Mutex
	created   []xendit.CreateQRRequest
	createErr error
	simStatus string
	simulated []string
	payments  map[string][]xendit.Payment
	listCalls int
	nextQRID  int
}

func (f *fakeProvider) CreateQRCode(_ context.Context, ref, currency string, amount int64) (*xendit.QRCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, xendit.CreateQRRequest{ReferenceID: ref, Type: "DYNAMIC", Currency: currency, Amount: amount})
	f.nextQRID++
	id := fmt.Sprintf("qr_%d", f.nextQRID)
	return &xendit.QRCode{ID: id, ReferenceID: ref, Amount: amount, QRString: "qr-payload-" + id}, nil
}

func (f *fakeProvider) SimulatePayment(_ context.Context, qrID string, amount int64) (*xendit.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulated = append(f.simulated, qrID)
	return &xendit.Payment{ID: "pay_sim", QRID: qrID, Amount: amount, Status: f.simStatus}, nil
}

func (f *fakeProvider) ListPayments(_ context.Context, qrID string) ([]xendit.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.payments[qrID], nil
}

type memPickups map[types.ID]*pickup.Pickup

func (m memPickups) Get(_ context.Context, id types.ID) (*pickup.Pickup, error) {
	p, ok := m[id]
	if !ok {
		return nil, pickup.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

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

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
