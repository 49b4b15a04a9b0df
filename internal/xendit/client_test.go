package xendit

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateQRCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/qr_codes", r.URL.Path)
		assert.Equal(t, apiVersion, r.Header.Get("api-version"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "xnd_test_secret", user)
		assert.Empty(t, pass)

		var req CreateQRRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "PICKUP-p1-1700000000000", req.ReferenceID)
		assert.Equal(t, "DYNAMIC", req.Type)
		assert.Equal(t, "IDR", req.Currency)
		assert.Equal(t, int64(10000), req.Amount)

		_ = json.NewEncoder(w).Encode(QRCode{
			ID:          "qr_123",
			ReferenceID: req.ReferenceID,
			QRString:    "00020101021226...",
			Amount:      req.Amount,
			Status:      "ACTIVE",
		})
	}))
	defer srv.Close()

	c := NewClient(Config{SecretKey: "xnd_test_secret", BaseURL: srv.URL})
	qr, err := c.CreateQRCode(context.Background(), "PICKUP-p1-1700000000000", "IDR", 10000)
	require.NoError(t, err)
	assert.Equal(t, "qr_123", qr.ID)
	assert.Equal(t, "00020101021226...", qr.QRString)
}

func TestRejectionIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":"API_VALIDATION_ERROR","message":"amount must be at least 1500"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{SecretKey: "k", BaseURL: srv.URL})
	_, err := c.CreateQRCode(context.Background(), "ref", "IDR", 1)
	require.Error(t, err)

	apiErr, ok := IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "API_VALIDATION_ERROR", apiErr.ErrorCode)
	assert.Contains(t, apiErr.Error(), "amount must be at least 1500")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestServerErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{SecretKey: "k", BaseURL: srv.URL})
	_, err := c.ListPayments(context.Background(), "qr_1")
	_, ok := IsAPIError(err)
	assert.True(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTransportFailureRetriedOnce(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		_, _ = w.Write([]byte(`{"id":"pay_1","qr_id":"qr_1","status":"SUCCEEDED","amount":10000}`))
	}))
	defer srv.Close()

	c := NewClient(Config{SecretKey: "k", BaseURL: srv.URL})
	p, err := c.SimulatePayment(context.Background(), "qr_1", 10000)
	require.NoError(t, err)
	assert.Equal(t, "SUCCEEDED", p.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTransportFailureGivesUpAfterRetry(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := NewClient(Config{SecretKey: "k", BaseURL: "http://" + addr, Timeout: time.Second})
	_, err = c.CreateQRCode(context.Background(), "ref", "IDR", 10000)
	require.Error(t, err)
	_, isAPI := IsAPIError(err)
	assert.False(t, isAPI)
}

func TestListPayments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/qr_codes/qr_9/payments", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"id":"pay_1","qr_id":"qr_9","reference_id":"ref","status":"SUCCEEDED","amount":10000}],"has_more":false}`))
	}))
	defer srv.Close()

	c := NewClient(Config{SecretKey: "k", BaseURL: srv.URL + "/"})
	payments, err := c.ListPayments(context.Background(), "qr_9")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "ref", payments[0].ReferenceID)
}
