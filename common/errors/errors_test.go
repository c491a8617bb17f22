package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIs_MatchesOnCode(t *testing.T) {
	err := fmt.Errorf("checkout: %w", InsufficientStock("A", 3, 1))

	assert.True(t, stderrors.Is(err, ErrInsufficientStock))
	assert.False(t, stderrors.Is(err, ErrProductNotFound))
}

func TestWithDetail_DoesNotMutateSentinel(t *testing.T) {
	e := ProductNotFound("A")

	assert.Equal(t, "A", e.Details["product_id"])
	assert.Nil(t, ErrProductNotFound.Details)
}

func TestInsufficientStock_Details(t *testing.T) {
	e := InsufficientStock("B", 5, 2)

	assert.Equal(t, http.StatusConflict, e.Status)
	assert.Equal(t, 5, e.Details["requested"])
	assert.Equal(t, 2, e.Details["available"])
	assert.Contains(t, e.Message, "requested 5, available 2")
}

func TestFrom_WrapsUnknownErrors(t *testing.T) {
	assert.Nil(t, From(nil))

	e := From(stderrors.New("mongo: connection refused"))
	assert.Equal(t, CodeInternal, e.Code)
	assert.Equal(t, http.StatusInternalServerError, e.Status)
}

func TestRespond_HidesInternalCause(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Respond(c, Internal("Failed to create order", stderrors.New("E11000 duplicate key")))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "E11000")

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, CodeInternal, body.Error.Code)
	assert.Equal(t, "Failed to create order", body.Error.Message)
}

func TestErrorMiddleware_RendersUnwrittenErrors(t *testing.T) {
	r := gin.New()
	r.Use(ErrorMiddleware())
	r.GET("/x", func(c *gin.Context) {
		_ = c.Error(OrderNotFound("o1"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), CodeOrderNotFound)
}
