package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kurs/internal/http/handlers"
	"kurs/internal/modules/role"
	"kurs/internal/types"
)

func meRoutes(roles *fakeRoles, tokens *fakeTokens) http.Handler {
	r := newEngine(asCollector(collectorID))
	h := handlers.NewMeHandler(roles, tokens)
	r.GET("/api/me/roles", h.Roles)
	r.PUT("/api/me/role", h.SwitchRole)
	r.PUT("/api/me/push-token", h.RegisterPushToken)
	return r
}

func TestMeRoles(t *testing.T) {
	r := meRoutes(&fakeRoles{}, &fakeTokens{})
	w := doRequest(r, http.MethodGet, "/api/me/roles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"principal_id":"collector-1","granted":["requester","collector"],"acting":"collector"}`, w.Body.String())
}

func TestSwitchRole(t *testing.T) {
	roles := &fakeRoles{}
	r := meRoutes(roles, &fakeTokens{})

	w := doRequest(r, http.MethodPut, "/api/me/role", map[string]string{"role": "requester"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, role.Requester, roles.target)
	assert.Contains(t, w.Body.String(), `"acting":"requester"`)

	w = doRequest(r, http.MethodPut, "/api/me/role", map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	roles.err = role.ErrNotGranted
	w = doRequest(r, http.MethodPut, "/api/me/role", map[string]string{"role": "staff"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRegisterPushToken(t *testing.T) {
	tokens := &fakeTokens{}
	r := meRoutes(&fakeRoles{}, tokens)

	w := doRequest(r, http.MethodPut, "/api/me/push-token", map[string]string{"token": "fcm-abc"})
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, types.ID(collectorID), tokens.user)
	assert.Equal(t, "fcm-abc", tokens.token)

	w = doRequest(r, http.MethodPut, "/api/me/push-token", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
