package attendance

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"CATS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r *gin.RouterGroup, svc *Service) {
	h := &Handler{svc: svc}

	// session lifecycle, gated to teachers at the middleware level; ownership
	// of the specific component is still the service's call
	teacher := r.Group("")
	teacher.Use(auth.RequireRole(auth.RoleTeacher))
	teacher.POST("/attendance/sessions", h.CreateSession)
	teacher.PUT("/attendance/sessions/:session_ulid/records", h.MarkAttendance)
	teacher.PATCH("/attendance/records/:record_id", h.UpdateRecord)

	// statistics
	r.GET("/attendance/sessions/:session_ulid/stats", h.SessionStats)
	r.GET("/attendance/components/:component_id/summary", h.ComponentSummary)
	r.GET("/attendance/students/:student_id/courses/:course_id/summary", h.StudentCourseSummary)
}

// ---------- handlers ----------

func (h *Handler) CreateSession(c *gin.Context) {
	teacherID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, created, err := h.svc.CreateOrGetSession(c.Request.Context(), teacherID, req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		c.Header("Location", "/attendance/sessions/"+res.SessionULID)
	}
	c.JSON(status, res)
}

func (h *Handler) MarkAttendance(c *gin.Context) {
	teacherID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.MarkAttendance(c.Request.Context(), teacherID, c.Param("session_ulid"), req.Records)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdateRecord(c *gin.Context) {
	teacherID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	recordID, err := strconv.ParseInt(c.Param("record_id"), 10, 64)
	if err != nil || recordID <= 0 {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid record_id"))
		return
	}

	var req UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.UpdateRecord(c.Request.Context(), teacherID, recordID, req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) SessionStats(c *gin.Context) {
	res, err := h.svc.SessionStats(c.Request.Context(), c.Param("session_ulid"))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ComponentSummary(c *gin.Context) {
	componentID, err := strconv.ParseInt(c.Param("component_id"), 10, 64)
	if err != nil || componentID <= 0 {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid component_id"))
		return
	}

	res, err := h.svc.ComponentSummary(c.Request.Context(), componentID)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) StudentCourseSummary(c *gin.Context) {
	studentID, err := strconv.ParseInt(c.Param("student_id"), 10, 64)
	if err != nil || studentID <= 0 {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid student_id"))
		return
	}
	courseID, err := strconv.ParseInt(c.Param("course_id"), 10, 64)
	if err != nil || courseID <= 0 {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid course_id"))
		return
	}

	// students may only read their own summary; teachers may read any
	callerID, role, ok := callerIdentity(c)
	if !ok {
		return
	}
	if role == RoleStudent && callerID != studentID {
		c.JSON(http.StatusForbidden, errorBody(CodeUnauthorized, "students may only view their own attendance"))
		return
	}

	res, err := h.svc.StudentCourseSummary(c.Request.Context(), studentID, courseID)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- helpers ----------

func callerIdentity(c *gin.Context) (int64, string, bool) {
	sub := c.GetString(auth.CtxUserIDKey)
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusUnauthorized, errorBody(CodeUnauthorized, "invalid subject claim"))
		return 0, "", false
	}
	return id, c.GetString(auth.CtxRoleKey), true
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
