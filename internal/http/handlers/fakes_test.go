package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"kurs/internal/http/middleware"
	"kurs/internal/infra"
	"kurs/internal/modules/collector"
	"kurs/internal/modules/deposit"
	"kurs/internal/modules/facility"
	"kurs/internal/modules/payment"
	"kurs/internal/modules/pickup"
	"kurs/internal/modules/role"
	"kurs/internal/types"
)

const (
	pickupID    = "0b8a4bde-0f3c-4c62-9d1b-5b7f3c1e9a01"
	requesterID = "resident-1"
	collectorID = "collector-1"
)

type stubVerifier struct{ uid string }

func (s stubVerifier) VerifyIDToken(_ context.Context, _ string) (*infra.FirebaseToken, error) {
	return &infra.FirebaseToken{UID: s.uid}, nil
}

type stubResolver struct {
	granted []role.Role
	acting  role.Role
}

func (s stubResolver) Resolve(_ context.Context, principal types.ID) (role.Session, error) {
	return role.Session{PrincipalID: principal, Granted: s.granted, Acting: s.acting}, nil
}

func asRequester(uid string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.Auth(stubVerifier{uid: uid}),
		middleware.Session(stubResolver{granted: []role.Role{role.Requester}, acting: role.Requester}),
	}
}

func asCollector(uid string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.Auth(stubVerifier{uid: uid}),
		middleware.Session(stubResolver{granted: []role.Role{role.Requester, role.Collector}, acting: role.Collector}),
	}
}

func asStaff(uid string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.Auth(stubVerifier{uid: uid}),
		middleware.Session(stubResolver{granted: []role.Role{role.Requester, role.Staff}, acting: role.Staff}),
	}
}

func newEngine(mw []gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	return r
}

func doRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func httptestRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serveRecorder(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func requestedPickup() *pickup.Pickup {
	return &pickup.Pickup{
		ID:          pickupID,
		RequesterID: requesterID,
		Status:      pickup.StatusRequested,
		Address:     "Jl. Merdeka 1",
		Location:    types.Point{Lat: -6.2, Lng: 106.8},
		WasteTypes:  []pickup.WasteType{pickup.WastePlastic},
		Fee:         types.IDR(10000),
	}
}

type fakePickups struct {
	mu       sync.Mutex
	pickup   *pickup.Pickup
	err      error
	origin   *types.Point
	create   pickup.CreateCommand
	accept   pickup.AcceptCommand
	advance  pickup.AdvanceCommand
	cancel   pickup.CancelCommand
	listings []pickup.Listing
	history  []pickup.Pickup
	limit    int
}

func (f *fakePickups) Create(_ context.Context, cmd pickup.CreateCommand) (*pickup.Pickup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.create = cmd
	if f.err != nil {
		return nil, f.err
	}
	p := requestedPickup()
	p.RequesterID = cmd.RequesterID
	p.Location = cmd.Location
	return p, nil
}

func (f *fakePickups) Get(_ context.Context, _ types.ID) (*pickup.Pickup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pickup == nil {
		return nil, pickup.ErrNotFound
	}
	cp := *f.pickup
	return &cp, nil
}

func (f *fakePickups) Cancel(_ context.Context, cmd pickup.CancelCommand) (*pickup.Pickup, error) {
	f.cancel = cmd
	if f.err != nil {
		return nil, f.err
	}
	p := requestedPickup()
	p.Status = pickup.StatusCancelled
	return p, nil
}

func (f *fakePickups) ListByRequester(_ context.Context, _ types.ID, _ int) ([]pickup.Pickup, error) {
	return nil, f.err
}

func (f *fakePickups) ListAvailable(_ context.Context, origin *types.Point, _ int) ([]pickup.Listing, error) {
	f.origin = origin
	return f.listings, f.err
}

func (f *fakePickups) ListActiveByCollector(_ context.Context, _ types.ID) ([]pickup.Pickup, error) {
	return nil, f.err
}

func (f *fakePickups) ListHistoryByCollector(_ context.Context, _ types.ID, limit int) ([]pickup.Pickup, error) {
	f.limit = limit
	return f.history, f.err
}

func (f *fakePickups) Accept(_ context.Context, cmd pickup.AcceptCommand) (*pickup.Pickup, error) {
	f.accept = cmd
	if f.err != nil {
		return nil, f.err
	}
	p := requestedPickup()
	p.Status = pickup.StatusAssigned
	p.CollectorID = &cmd.CollectorID
	return p, nil
}

func (f *fakePickups) Advance(_ context.Context, cmd pickup.AdvanceCommand) (*pickup.Pickup, error) {
	f.advance = cmd
	if f.err != nil {
		return nil, f.err
	}
	p := requestedPickup()
	p.Status = cmd.Target
	p.CollectorID = &cmd.CollectorID
	return p, nil
}

func (f *fakePickups) Earnings(_ context.Context, id types.ID) (*pickup.Earnings, error) {
	return &pickup.Earnings{CollectorID: id, Completed: 2, Total: types.IDR(20000)}, f.err
}

type fakeCollectors struct {
	me        *collector.Collector
	err       error
	available *bool
	location  types.Point
}

func (f *fakeCollectors) Get(_ context.Context, _ types.ID) (*collector.Collector, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.me == nil {
		return nil, collector.ErrNotFound
	}
	return f.me, nil
}

func (f *fakeCollectors) SetAvailability(_ context.Context, id types.ID, available bool) (*collector.Collector, error) {
	f.available = &available
	a := collector.Offline
	if available {
		a = collector.Available
	}
	return &collector.Collector{UserID: id, Availability: a}, f.err
}

func (f *fakeCollectors) UpdateLocation(_ context.Context, id types.ID, p types.Point) (*collector.Collector, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.location = p
	return &collector.Collector{UserID: id, Location: &p}, nil
}

type reconcileCall struct {
	ref, status string
}

type fakePayments struct {
	intent     *payment.Intent
	err        error
	create     payment.CreateIntentCommand
	outcome    payment.Outcome
	reconciles []reconcileCall
}

func (f *fakePayments) CreateIntent(_ context.Context, cmd payment.CreateIntentCommand) (*payment.Intent, error) {
	f.create = cmd
	return f.intent, f.err
}

func (f *fakePayments) Latest(_ context.Context, _, _ types.ID) (*payment.Intent, error) {
	return f.intent, f.err
}

func (f *fakePayments) Simulate(_ context.Context, _, _ types.ID) (*payment.Intent, error) {
	return f.intent, f.err
}

func (f *fakePayments) Reconcile(_ context.Context, ref, status string) (payment.Outcome, error) {
	f.reconciles = append(f.reconciles, reconcileCall{ref: ref, status: status})
	return f.outcome, f.err
}

type fakeRoles struct {
	err    error
	target role.Role
}

func (f *fakeRoles) SwitchRole(_ context.Context, sess role.Session, target role.Role) (role.Session, error) {
	f.target = target
	if f.err != nil {
		return sess, f.err
	}
	sess.Acting = target
	return sess, nil
}

type fakeTokens struct {
	user  types.ID
	token string
}

func (f *fakeTokens) RegisterToken(_ context.Context, userID types.ID, token string) error {
	f.user, f.token = userID, token
	return nil
}

type fakeFacilities struct {
	query facility.Query
	items []facility.Listing
	err   error
}

func (f *fakeFacilities) List(_ context.Context, q facility.Query) ([]facility.Listing, error) {
	f.query = q
	return f.items, f.err
}

func (f *fakeFacilities) Get(_ context.Context, id types.ID) (*facility.Facility, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &facility.Facility{ID: id, Name: "Bank Sampah Menteng", Type: facility.TypeWasteBank}, nil
}

type fakeDeposits struct {
	sess   role.Session
	cmd    deposit.RecordCommand
	err    error
	listed types.ID
}

func (f *fakeDeposits) Record(_ context.Context, sess role.Session, cmd deposit.RecordCommand) (*deposit.Deposit, error) {
	f.sess, f.cmd = sess, cmd
	if f.err != nil {
		return nil, f.err
	}
	return &deposit.Deposit{ID: "d1", DepositorID: cmd.DepositorID, VerifiedBy: sess.PrincipalID, WeightKg: cmd.WeightKg, Status: deposit.StatusVerified}, nil
}

func (f *fakeDeposits) ListByDepositor(_ context.Context, id types.ID, _ int) ([]deposit.Deposit, error) {
	f.listed = id
	return nil, f.err
}

func (f *fakeDeposits) Export(_ context.Context, sess role.Session) ([]byte, error) {
	f.sess = sess
	if f.err != nil {
		return nil, f.err
	}
	return []byte("PK-xlsx"), nil
}

func (f *fakeDeposits) ListByStaff(_ context.Context, sess role.Session, _ int) ([]deposit.Deposit, error) {
	f.sess = sess
	return nil, f.err
}
