package handlers_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kurs/internal/http/handlers"
	"kurs/internal/modules/collector"
	"kurs/internal/modules/pickup"
	"kurs/internal/types"
)

func collectorRoutes(jobs *fakePickups, cols *fakeCollectors) http.Handler {
	r := newEngine(asCollector(collectorID))
	h := handlers.NewCollectorHandler(jobs, cols)
	r.GET("/api/collector/jobs", h.ListJobs)
	r.GET("/api/collector/jobs/active", h.ListActive)
	r.GET("/api/collector/jobs/history", h.History)
	r.POST("/api/collector/jobs/:id/accept", h.Accept)
	r.POST("/api/collector/jobs/:id/advance", h.Advance)
	r.GET("/api/collector/earnings", h.Earnings)
	r.PUT("/api/collector/availability", h.SetAvailability)
	r.PUT("/api/collector/location", h.UpdateLocation)
	return r
}

func TestListJobs_Origin(t *testing.T) {
	stored := types.Point{Lat: -6.3, Lng: 106.9}

	t.Run("query wins", func(t *testing.T) {
		jobs := &fakePickups{}
		r := collectorRoutes(jobs, &fakeCollectors{me: &collector.Collector{Location: &stored}})
		w := doRequest(r, http.MethodGet, "/api/collector/jobs?lat=-6.2&lng=106.8", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, jobs.origin)
		assert.Equal(t, types.Point{Lat: -6.2, Lng: 106.8}, *jobs.origin)
		assert.JSONEq(t, `{"jobs":[]}`, w.Body.String())
	})

	t.Run("falls back to last location", func(t *testing.T) {
		jobs := &fakePickups{}
		r := collectorRoutes(jobs, &fakeCollectors{me: &collector.Collector{Location: &stored}})
		w := doRequest(r, http.MethodGet, "/api/collector/jobs", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, jobs.origin)
		assert.Equal(t, stored, *jobs.origin)
	})

	t.Run("unknown collector lists unsorted", func(t *testing.T) {
		jobs := &fakePickups{}
		r := collectorRoutes(jobs, &fakeCollectors{})
		w := doRequest(r, http.MethodGet, "/api/collector/jobs", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, jobs.origin)
	})

	t.Run("bad coordinates", func(t *testing.T) {
		r := collectorRoutes(&fakePickups{}, &fakeCollectors{})
		w := doRequest(r, http.MethodGet, "/api/collector/jobs?lat=200&lng=1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w = doRequest(r, http.MethodGet, "/api/collector/jobs?lat=1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAccept_UsesCallerAsCollector(t *testing.T) {
	jobs := &fakePickups{}
	r := collectorRoutes(jobs, &fakeCollectors{})
	w := doRequest(r, http.MethodPost, "/api/collector/jobs/"+pickupID+"/accept", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.ID(collectorID), jobs.accept.CollectorID)
	assert.Equal(t, types.ID(pickupID), jobs.accept.PickupID)
	assert.Contains(t, w.Body.String(), `"progress":1`)
}

func TestCollectorErrors_MapToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		path string
		body any
		want int
	}{
		{"lost race", pickup.ErrAlreadyClaimed, "/accept", nil, http.StatusConflict},
		{"missing", pickup.ErrNotFound, "/accept", nil, http.StatusNotFound},
		{"not assigned", pickup.ErrNotAssigned, "/advance", map[string]string{"status": "en_route"}, http.StatusForbidden},
		{"skip", pickup.ErrInvalidTransition, "/advance", map[string]string{"status": "completed"}, http.StatusConflict},
		{"unpaid", pickup.ErrPaymentRequired, "/advance", map[string]string{"status": "completed"}, http.StatusPaymentRequired},
		{"unexpected", errors.New("db gone"), "/accept", nil, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := collectorRoutes(&fakePickups{err: tc.err}, &fakeCollectors{})
			w := doRequest(r, http.MethodPost, "/api/collector/jobs/"+pickupID+tc.path, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
			if tc.want == http.StatusInternalServerError {
				assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
			}
		})
	}
}

func TestAdvance_PassesTarget(t *testing.T) {
	jobs := &fakePickups{}
	r := collectorRoutes(jobs, &fakeCollectors{})

	w := doRequest(r, http.MethodPost, "/api/collector/jobs/"+pickupID+"/advance", map[string]string{"status": "en_route"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pickup.StatusEnRoute, jobs.advance.Target)
	assert.Equal(t, types.ID(collectorID), jobs.advance.CollectorID)

	w = doRequest(r, http.MethodPost, "/api/collector/jobs/"+pickupID+"/advance", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilityAndLocation(t *testing.T) {
	cols := &fakeCollectors{}
	r := collectorRoutes(&fakePickups{}, cols)

	w := doRequest(r, http.MethodPut, "/api/collector/availability", map[string]bool{"available": false})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, cols.available)
	assert.False(t, *cols.available)
	assert.Contains(t, w.Body.String(), `"availability":"offline"`)

	w = doRequest(r, http.MethodPut, "/api/collector/availability", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodPut, "/api/collector/location", map[string]float64{"lat": -6.2, "lng": 106.8})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.Point{Lat: -6.2, Lng: 106.8}, cols.location)

	cols.err = collector.ErrBadLocation
	w = doRequest(r, http.MethodPut, "/api/collector/location", map[string]float64{"lat": 100, "lng": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEarnings(t *testing.T) {
	r := collectorRoutes(&fakePickups{}, &fakeCollectors{})
	w := doRequest(r, http.MethodGet, "/api/collector/earnings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"collector_id":"collector-1","completed":2,"total":{"amount":20000,"currency":"IDR"}}`, w.Body.String())
}

func TestJobHistory(t *testing.T) {
	done := requestedPickup()
	done.Status = pickup.StatusCompleted
	jobs := &fakePickups{history: []pickup.Pickup{*done}}
	r := collectorRoutes(jobs, &fakeCollectors{})

	w := doRequest(r, http.MethodGet, "/api/collector/jobs/history?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"completed"`)
	assert.Equal(t, 5, jobs.limit)

	jobs.history = nil
	w = doRequest(r, http.MethodGet, "/api/collector/jobs/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"jobs":[]}`, w.Body.String())
}
