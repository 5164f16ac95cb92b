package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"mailspot/internal/constants"
	"mailspot/internal/service"
	"mailspot/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: too many spots", service.ErrInvalidInput), http.StatusBadRequest},
		{service.ErrInvalidSignature, http.StatusBadRequest},
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: spot x", service.ErrNotFound), http.StatusNotFound},
		{service.ErrSpotUnavailable, http.StatusConflict},
		{service.ErrMailingHasSales, http.StatusConflict},
		{service.ErrEmailTaken, http.StatusConflict},
		{service.ErrCheckoutInProgress, http.StatusTooManyRequests},
		{service.ErrPaymentProvider, http.StatusBadGateway},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorHidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/checkout", nil)

	Error(c, logger.NewNop(), "下单失败", fmt.Errorf("%w: stripe: card_declined key=sk_live", service.ErrPaymentProvider), constants.ErrCheckoutFailed)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(http.StatusBadGateway), body["code"])
	assert.Equal(t, constants.ErrCheckoutFailed, body["msg"])
	assert.NotContains(t, w.Body.String(), "sk_live")
}

func TestErrorShowsValidationReason(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/checkout", nil)

	Error(c, logger.NewNop(), "下单失败", fmt.Errorf("%w: at most 12 spots per checkout", service.ErrInvalidInput), constants.ErrCheckoutFailed)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["msg"], "at most 12 spots")
}

func TestRawErrorSurfacesMessage(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/assign-spot", nil)

	RawError(c, logger.NewNop(), "指派广告位失败", fmt.Errorf("insert payment: %w", errors.New("deadlock found")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "insert payment: deadlock found", decode(t, w)["msg"])
}

func TestPrincipalMissingIs401(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	_, ok := Principal(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaginationDefaults(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/blog?page=-3&limit=500", nil)

	page, limit := Pagination(c)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, limit)
}
