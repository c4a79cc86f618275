package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/schoolpay/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validationSample struct {
	Name      string `json:"name" binding:"required,max=10"`
	AppliesTo string `json:"applies_to" binding:"required,applies_to"`
	Status    string `json:"status" binding:"omitempty,concept_status"`
	Semester  int    `json:"semester" binding:"omitempty,gte=1,lte=20"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var req validationSample
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func postJSON(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleValidationError(t *testing.T) {
	router := newValidationRouter()

	t.Run("field errors use json names", func(t *testing.T) {
		w := postJSON(router, `{"name": "far too long a name", "applies_to": "NOBODY", "status": "PAUSED", "semester": 30}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.RequestID)

		messages := map[string]string{}
		for _, d := range resp.Error.Details {
			messages[d.Field] = d.Message
		}
		assert.Equal(t, "Must be at most 10 characters", messages["name"])
		assert.Contains(t, messages["applies_to"], "CARRERA_SEMESTRE")
		assert.Contains(t, messages["status"], "DESACTIVADO")
		assert.Equal(t, "Must be less than or equal to 20", messages["semester"])
	})

	t.Run("malformed JSON", func(t *testing.T) {
		w := postJSON(router, `{"name": `)

		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
	})

	t.Run("valid input", func(t *testing.T) {
		w := postJSON(router, `{"name": "Tuition", "applies_to": "CARRERA", "status": "ACTIVO"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
