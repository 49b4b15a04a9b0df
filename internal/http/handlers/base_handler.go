// README: Base handler utilities (JSON helpers, session lookup, error mapping).
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kurs/internal/apperr"
	"kurs/internal/http/middleware"
	"kurs/internal/modules/role"
	"kurs/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

const maxListLimit = 200

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError maps module errors onto status codes. Anything unclassified
// is attached to the context for the logging middleware and hidden from the client.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, apperr.ErrPaymentRequired):
		writeError(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, apperr.ErrUpstream):
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// session returns the caller session or writes 401.
func session(c *gin.Context) (role.Session, bool) {
	sess, ok := middleware.SessionFrom(c)
	if !ok || sess.PrincipalID == "" {
		writeError(c, http.StatusUnauthorized, "unauthenticated")
		return role.Session{}, false
	}
	return sess, true
}

// pathID reads a uuid path parameter or writes 400.
func pathID(c *gin.Context, name string) (types.ID, bool) {
	raw := c.Param(name)
	if _, err := uuid.Parse(raw); err != nil {
		writeError(c, http.StatusBadRequest, "invalid "+name)
		return "", false
	}
	return types.ID(raw), true
}

// queryLimit parses ?limit=, defaulting to 0 (service default) and capping at maxListLimit.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(c, http.StatusBadRequest, "invalid limit")
		return 0, false
	}
	return min(n, maxListLimit), true
}

// queryPoint parses optional ?lat=&lng=. Both or neither must be present.
func queryPoint(c *gin.Context) (*types.Point, bool) {
	lat, lng := c.Query("lat"), c.Query("lng")
	if lat == "" && lng == "" {
		return nil, true
	}
	p := types.Point{}
	var err1, err2 error
	p.Lat, err1 = strconv.ParseFloat(lat, 64)
	p.Lng, err2 = strconv.ParseFloat(lng, 64)
	if err1 != nil || err2 != nil || !p.Valid() {
		writeError(c, http.StatusBadRequest, "invalid lat/lng")
		return nil, false
	}
	return &p, true
}
