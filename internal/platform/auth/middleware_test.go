package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		allowed []string
		want    int
	}{
		{name: "matching role passes", role: RoleTeacher, allowed: []string{RoleTeacher}, want: http.StatusOK},
		{name: "other role forbidden", role: RoleStudent, allowed: []string{RoleTeacher}, want: http.StatusForbidden},
		{name: "missing role forbidden", role: "", allowed: []string{RoleTeacher}, want: http.StatusForbidden},
		{name: "any of several roles passes", role: RoleStudent, allowed: []string{RoleTeacher, RoleStudent}, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(func(c *gin.Context) {
				if tt.role != "" {
					c.Set(CtxRoleKey, tt.role)
				}
			})
			r.Use(RequireRole(tt.allowed...))
			r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
