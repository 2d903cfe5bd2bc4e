package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hostelmess/internal/attendance"
	"hostelmess/internal/auth"
	"hostelmess/internal/calendar"
	"hostelmess/internal/issue"
	"hostelmess/internal/menu"
	"hostelmess/internal/mess"
	"hostelmess/internal/metrics"
	"hostelmess/internal/student"
)

func (s *Server) menu(c *gin.Context) {
	b, err := menu.Load()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) adminLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password are required")
		return
	}
	res, err := s.Accounts.LoginAdmin(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		metrics.LoginFailures.WithLabelValues(auth.RoleAdmin).Inc()
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) studentLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	res, err := s.Accounts.LoginStudent(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		metrics.LoginFailures.WithLabelValues(auth.RoleStudent).Inc()
		if errors.Is(err, student.ErrTerminated) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "mess subscription has been terminated"})
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) changePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "current and new password are required")
		return
	}
	sess, _ := auth.SessionOf(c)
	if err := s.Accounts.ChangeAdminPassword(c.Request.Context(), sess.Subject, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "current password is incorrect"})
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// studentView is a student as the roster screens show it.
type studentView struct {
	mess.Student
	Subscription     mess.SubscriptionInfo `json:"subscription"`
	SuggestedRenewal calendar.Date         `json:"suggestedRenewal"`
}

func (s *Server) view(st mess.Student) studentView {
	today := s.Students.Today()
	return studentView{
		Student:          st,
		Subscription:     mess.Evaluate(today, st.MessEndDate),
		SuggestedRenewal: mess.SuggestedRenewal(today, st.MessEndDate),
	}
}

func (s *Server) views(list []mess.Student) []studentView {
	out := make([]studentView, 0, len(list))
	for _, st := range list {
		out = append(out, s.view(st))
	}
	return out
}

func (s *Server) listStudents(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	res, err := s.Students.List(c.Request.Context(), student.Query{Page: page, Limit: limit, Search: c.Query("search")})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"students":    s.views(res.Students),
		"currentPage": res.CurrentPage,
		"totalPages":  res.TotalPages,
		"total":       res.Total,
	})
}

func (s *Server) filterStudents(c *gin.Context) {
	tag := mess.FilterActive
	if v := c.Query("tag"); v != "" {
		var err error
		if tag, err = mess.ParseFilterTag(v); err != nil {
			fail(c, err)
			return
		}
	}
	list, counts, err := s.Students.Filtered(c.Request.Context(), tag, c.Query("search"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tag": tag, "students": s.views(list), "counts": counts})
}

func (s *Server) getStudent(c *gin.Context) {
	st, err := s.Students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.view(st))
}

func (s *Server) studentLeaves(c *gin.Context) {
	if _, err := s.Students.Get(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	leaves, err := s.Students.Leaves(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if leaves == nil {
		leaves = []mess.LeavePeriod{}
	}
	c.JSON(http.StatusOK, leaves)
}

func (s *Server) createStudent(c *gin.Context) {
	var req student.NewStudent
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid student payload: "+err.Error())
		return
	}
	st, err := s.Students.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	s.studentChanged(c, st)
	c.JSON(http.StatusCreated, s.view(st))
}

func (s *Server) setStatus(c *gin.Context) {
	var req student.StatusChange
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid status payload: "+err.Error())
		return
	}
	st, err := s.Students.SetStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	s.studentChanged(c, st)
	c.JSON(http.StatusOK, s.view(st))
}

func (s *Server) renew(c *gin.Context) {
	var req struct {
		NewMessEndDate calendar.Date `json:"newMessEndDate"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid renew payload: "+err.Error())
			return
		}
	}
	ctx := c.Request.Context()
	end := req.NewMessEndDate
	if end.IsZero() {
		cur, err := s.Students.Get(ctx, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		end = mess.SuggestedRenewal(s.Students.Today(), cur.MessEndDate)
	}
	st, err := s.Students.Renew(ctx, c.Param("id"), end)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.view(st))
}

func (s *Server) reactivate(c *gin.Context) {
	var req struct {
		MessStartDate calendar.Date `json:"messStartDate"`
		MessEndDate   calendar.Date `json:"messEndDate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid reactivate payload: "+err.Error())
		return
	}
	st, err := s.Students.Reactivate(c.Request.Context(), c.Param("id"), calendar.Range{Start: req.MessStartDate, End: req.MessEndDate})
	if err != nil {
		fail(c, err)
		return
	}
	s.studentChanged(c, st)
	c.JSON(http.StatusOK, s.view(st))
}

func (s *Server) attendanceByDate(c *gin.Context) {
	day, err := dateQuery(c, "date")
	if err != nil {
		fail(c, err)
		return
	}
	if day.IsZero() {
		day = s.Students.Today()
	}
	records, err := s.Attendance.ByDate(c.Request.Context(), day)
	if err != nil {
		fail(c, err)
		return
	}
	if records == nil {
		records = []mess.AttendanceRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) markAttendance(c *gin.Context) {
	var req attendance.Mark
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid attendance payload: "+err.Error())
		return
	}
	rec, err := s.Attendance.Mark(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) raiseIssue(c *gin.Context) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, issue.ErrFieldsRequired.Error())
		return
	}
	is, err := s.Issues.Raise(c.Request.Context(), req.Title, req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "issue submitted", "issue": is})
}

func (s *Server) listIssues(c *gin.Context) {
	list, err := s.Issues.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) setIssueStatus(c *gin.Context) {
	var req struct {
		Status issue.Status `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	is, err := s.Issues.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, is)
}

func (s *Server) dailySummary(c *gin.Context) {
	day, err := dateQuery(c, "date")
	if err != nil {
		fail(c, err)
		return
	}
	sum, err := s.Reports.Daily(c.Request.Context(), day)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) monthlySummary(c *gin.Context) {
	id := c.Query("studentId")
	if id == "" {
		badRequest(c, "studentId is required")
		return
	}
	sum, err := s.Reports.Monthly(c.Request.Context(), id, c.Query("month"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) studentLedger(c *gin.Context) {
	l, err := s.Reports.Ledger(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) myLedger(c *gin.Context) {
	sess, _ := auth.SessionOf(c)
	l, err := s.Reports.Ledger(c.Request.Context(), sess.Subject)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l.Ledger)
}

func (s *Server) myAttendance(c *gin.Context) {
	sess, _ := auth.SessionOf(c)
	records, err := s.Reports.MonthAttendance(c.Request.Context(), sess.Subject, c.Query("month"))
	if err != nil {
		fail(c, err)
		return
	}
	if records == nil {
		records = []mess.AttendanceRecord{}
	}
	c.JSON(http.StatusOK, records)
}
