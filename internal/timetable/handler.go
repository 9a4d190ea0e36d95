package timetable

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"CATS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// GET /timetable/day?day=MONDAY
	r.GET("/timetable/day", h.Day)
	// GET /timetable/week
	r.GET("/timetable/week", h.Week)
	// GET /timetable/now
	r.GET("/timetable/now", h.Now)
}

// ---------- handlers ----------

func (h *Handler) Day(c *gin.Context) {
	personID, role, ok := callerIdentity(c)
	if !ok {
		return
	}

	day := c.Query("day")
	if day == "" {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "day query parameter is required"))
		return
	}

	entries, err := h.svc.ResolveDay(c.Request.Context(), personID, role, day)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	norm, _ := NormalizeDay(day)
	c.JSON(http.StatusOK, DayResponse{Day: norm, Classes: entries})
}

func (h *Handler) Week(c *gin.Context) {
	personID, role, ok := callerIdentity(c)
	if !ok {
		return
	}

	week, err := h.svc.Week(c.Request.Context(), personID, role)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, WeekResponse{Week: week})
}

func (h *Handler) Now(c *gin.Context) {
	personID, role, ok := callerIdentity(c)
	if !ok {
		return
	}

	res, err := h.svc.CurrentAndUpcoming(c.Request.Context(), personID, role)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- helpers ----------

// callerIdentity pulls the authenticated user id and role out of the JWT
// claims stashed by auth.RequireAuth.
func callerIdentity(c *gin.Context) (int64, string, bool) {
	sub := c.GetString(auth.CtxUserIDKey)
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusUnauthorized, errorBody(CodeUnauthorized, "invalid subject claim"))
		return 0, "", false
	}
	role := c.GetString(auth.CtxRoleKey)
	if role != RoleStudent && role != RoleTeacher {
		c.JSON(http.StatusForbidden, errorBody(CodeRoleMismatch, "role claim must be student or teacher"))
		return 0, "", false
	}
	return id, role, true
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	var msg string
	var code Code = CodeInternal
	if api, ok := err.(*APIError); ok {
		code, msg = api.Code, api.Message
	} else {
		msg = err.Error()
	}
	return errorBody(code, msg)
}
