package timetable

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"CATS-backend/internal/platform/auth"
)

func TestRoutesRejectBadSubjectClaim(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestService(&fakeStore{}, monday)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.CtxUserIDKey, "not-a-number")
		c.Set(auth.CtxRoleKey, RoleTeacher)
	})
	RegisterRoutes(r, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/timetable/week", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	var body errorDTO
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Error.Code != CodeUnauthorized {
		t.Errorf("body code = %s, want %s", body.Error.Code, CodeUnauthorized)
	}
}
