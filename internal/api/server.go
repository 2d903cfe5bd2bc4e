// Package api exposes the mess services over HTTP.
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hostelmess/internal/account"
	"hostelmess/internal/attendance"
	"hostelmess/internal/auth"
	"hostelmess/internal/httpmiddleware"
	"hostelmess/internal/issue"
	"hostelmess/internal/mess"
	"hostelmess/internal/metrics"
	"hostelmess/internal/queue"
	"hostelmess/internal/report"
	"hostelmess/internal/student"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Server holds the services behind the HTTP routes.
type Server struct {
	Accounts     *account.Service
	Students     *student.Service
	Attendance   *attendance.Service
	Issues       *issue.Service
	Reports      *report.Service
	Issuer       *auth.Issuer
	LoginLimiter *httpmiddleware.TokenBucket
	Events       queue.Queue
	CORSOrigins  []string
	Health       map[string]HealthCheck
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware(s.CORSOrigins))
	r.Use(securityHeaders())
	r.Use(metrics.Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.healthz)

	limit := func(c *gin.Context) { c.Next() }
	if s.LoginLimiter != nil {
		limit = s.LoginLimiter.GinMiddleware()
	}

	api := r.Group("/api")
	api.GET("/menu", s.menu)
	api.POST("/admin/login", limit, s.adminLogin)
	api.POST("/auth/student/login", limit, s.studentLogin)
	api.POST("/issues", s.raiseIssue)

	admin := api.Group("", auth.Require(s.Issuer, auth.RoleAdmin))
	admin.PUT("/admin/profile/change-password", s.changePassword)

	admin.GET("/students", s.listStudents)
	admin.GET("/students/filter", s.filterStudents)
	admin.POST("/students", s.createStudent)
	admin.GET("/students/:id", s.getStudent)
	admin.GET("/students/:id/leaves", s.studentLeaves)
	admin.PUT("/students/:id/status", s.setStatus)
	admin.PUT("/students/:id/renew", s.renew)
	admin.PUT("/students/:id/reactivate", s.reactivate)

	admin.GET("/attendance", s.attendanceByDate)
	admin.POST("/attendance", s.markAttendance)

	admin.GET("/issues", s.listIssues)
	admin.PUT("/issues/:id/status", s.setIssueStatus)

	admin.GET("/reports/daily-summary", s.dailySummary)
	admin.GET("/reports/monthly-student-summary", s.monthlySummary)
	admin.GET("/reports/student-meal-ledger/:id", s.studentLedger)

	self := api.Group("/student", auth.Require(s.Issuer, auth.RoleStudent))
	self.GET("/my-ledger", s.myLedger)
	self.GET("/my-attendance", s.myAttendance)

	return r
}

func (s *Server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	body := gin.H{"status": "ok"}
	status := http.StatusOK
	for name, check := range s.Health {
		ok := check(ctx)
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// studentChanged tells the worker that roster counts moved.
func (s *Server) studentChanged(c *gin.Context, st mess.Student) {
	if s.Events == nil {
		return
	}
	msg, err := queue.Encode(queue.TypeStudentChanged, queue.StudentChanged{StudentID: st.ID, Status: st.Status})
	if err == nil {
		err = s.Events.Publish(c.Request.Context(), msg)
	}
	if err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:           24 * time.Hour,
	}
	all := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			all = true
		}
	}
	// Any origin gets "*" and no credentials; named origins are echoed.
	if all {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
