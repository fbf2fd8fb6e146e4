package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type optionalPayload struct {
	Name string `json:"name"`
}

func TestBindJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		body     io.Reader
		length   int64
		optional bool
		ok       bool
		value    string
	}{
		{"optional sized empty body", http.NoBody, 0, true, true, ""},
		{"optional unsized empty body", http.NoBody, -1, true, true, ""},
		{"optional chunked empty body", strings.NewReader(""), -1, true, true, ""},
		{"optional payload", strings.NewReader(`{"name":"Kitchen"}`), -1, true, true, "Kitchen"},
		{"optional truncated payload", strings.NewReader(`{"name":`), -1, true, false, ""},
		{"required empty body", http.NoBody, -1, false, false, ""},
		{"required payload", strings.NewReader(`{"name":"Garden"}`), 17, false, true, "Garden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			req := httptest.NewRequest(http.MethodPost, "/assistant/system-status", tt.body)
			req.ContentLength = tt.length
			req.Header.Set("Content-Type", "application/json")
			c.Request = req

			var payload optionalPayload
			ok := bindJSON(c, &payload, tt.optional)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.value, payload.Name)
			if !tt.ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}
