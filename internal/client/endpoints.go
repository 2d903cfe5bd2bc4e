package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"hostelmess/internal/account"
	"hostelmess/internal/auth"
	"hostelmess/internal/calendar"
	"hostelmess/internal/issue"
	"hostelmess/internal/menu"
	"hostelmess/internal/mess"
	"hostelmess/internal/report"
	"hostelmess/internal/student"
)

// Student is a roster entry with its derived subscription state.
type Student struct {
	mess.Student
	Subscription     mess.SubscriptionInfo `json:"subscription"`
	SuggestedRenewal calendar.Date         `json:"suggestedRenewal"`
}

// StudentPage is one page of the roster.
type StudentPage struct {
	Students    []Student `json:"students"`
	CurrentPage int       `json:"currentPage"`
	TotalPages  int       `json:"totalPages"`
	Total       int       `json:"total"`
}

// Filtered is a roster view with the per-tag counts.
type Filtered struct {
	Tag      mess.FilterTag         `json:"tag"`
	Students []Student              `json:"students"`
	Counts   map[mess.FilterTag]int `json:"counts"`
}

// LoginAdmin signs an admin in.
func (c *Client) LoginAdmin(ctx context.Context, username, password string) (auth.Session, error) {
	var res account.AdminLogin
	if err := c.do(ctx, nil, http.MethodPost, "/api/admin/login", nil,
		map[string]string{"username": username, "password": password}, &res); err != nil {
		return auth.Session{}, err
	}
	return sessionFromToken(res.Token)
}

// LoginStudent signs a student in.
func (c *Client) LoginStudent(ctx context.Context, email, password string) (auth.Session, error) {
	var res account.StudentLogin
	if err := c.do(ctx, nil, http.MethodPost, "/api/auth/student/login", nil,
		map[string]string{"email": email, "password": password}, &res); err != nil {
		return auth.Session{}, err
	}
	return sessionFromToken(res.Token)
}

// ChangePassword changes the signed-in admin's password.
func (c *Client) ChangePassword(ctx context.Context, sess auth.Session, current, next string) error {
	return c.do(ctx, &sess, http.MethodPut, "/api/admin/profile/change-password", nil,
		map[string]string{"currentPassword": current, "newPassword": next}, nil)
}

// Students lists one page of the roster.
func (c *Client) Students(ctx context.Context, sess auth.Session, q student.Query) (StudentPage, error) {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	var page StudentPage
	err := c.do(ctx, &sess, http.MethodGet, "/api/students", v, nil, &page)
	return page, err
}

// Filter applies a roster view.
func (c *Client) Filter(ctx context.Context, sess auth.Session, tag mess.FilterTag, search string) (Filtered, error) {
	v := url.Values{"tag": {string(tag)}}
	if search != "" {
		v.Set("search", search)
	}
	var res Filtered
	err := c.do(ctx, &sess, http.MethodGet, "/api/students/filter", v, nil, &res)
	return res, err
}

// Student returns one student.
func (c *Client) Student(ctx context.Context, sess auth.Session, id string) (Student, error) {
	var st Student
	err := c.do(ctx, &sess, http.MethodGet, "/api/students/"+url.PathEscape(id), nil, nil, &st)
	return st, err
}

// CreateStudent registers a student.
func (c *Client) CreateStudent(ctx context.Context, sess auth.Session, ns student.NewStudent) (Student, error) {
	var st Student
	err := c.do(ctx, &sess, http.MethodPost, "/api/students", nil, ns, &st)
	return st, err
}

// SetStatus changes a student's lifecycle status.
func (c *Client) SetStatus(ctx context.Context, sess auth.Session, id string, ch student.StatusChange) (Student, error) {
	var st Student
	err := c.do(ctx, &sess, http.MethodPut, "/api/students/"+url.PathEscape(id)+"/status", nil, ch, &st)
	return st, err
}

// Renew moves the subscription end. A zero end lets the server suggest one.
func (c *Client) Renew(ctx context.Context, sess auth.Session, id string, end calendar.Date) (Student, error) {
	var st Student
	err := c.do(ctx, &sess, http.MethodPut, "/api/students/"+url.PathEscape(id)+"/renew", nil,
		map[string]calendar.Date{"newMessEndDate": end}, &st)
	return st, err
}

// Reactivate gives a student a new subscription window.
func (c *Client) Reactivate(ctx context.Context, sess auth.Session, id string, window calendar.Range) (Student, error) {
	var st Student
	err := c.do(ctx, &sess, http.MethodPut, "/api/students/"+url.PathEscape(id)+"/reactivate", nil,
		map[string]calendar.Date{"messStartDate": window.Start, "messEndDate": window.End}, &st)
	return st, err
}

// Attendance returns every record of day.
func (c *Client) Attendance(ctx context.Context, sess auth.Session, day calendar.Date) ([]mess.AttendanceRecord, error) {
	var res []mess.AttendanceRecord
	err := c.do(ctx, &sess, http.MethodGet, "/api/attendance", url.Values{"date": {day.String()}}, nil, &res)
	return res, err
}

// RaiseIssue submits a complaint. No session is needed.
func (c *Client) RaiseIssue(ctx context.Context, title, description string) (issue.Issue, error) {
	var res struct {
		Issue issue.Issue `json:"issue"`
	}
	err := c.do(ctx, nil, http.MethodPost, "/api/issues", nil,
		map[string]string{"title": title, "description": description}, &res)
	return res.Issue, err
}

// Issues lists complaints newest first.
func (c *Client) Issues(ctx context.Context, sess auth.Session) ([]issue.Issue, error) {
	var res []issue.Issue
	err := c.do(ctx, &sess, http.MethodGet, "/api/issues", nil, nil, &res)
	return res, err
}

// ResolveIssue marks an issue Resolved.
func (c *Client) ResolveIssue(ctx context.Context, sess auth.Session, id string) (issue.Issue, error) {
	var res issue.Issue
	err := c.do(ctx, &sess, http.MethodPut, "/api/issues/"+url.PathEscape(id)+"/status", nil,
		map[string]issue.Status{"status": issue.StatusResolved}, &res)
	return res, err
}

// DailySummary returns the meal counts of day; today when zero.
func (c *Client) DailySummary(ctx context.Context, sess auth.Session, day calendar.Date) (report.DailySummary, error) {
	var v url.Values
	if !day.IsZero() {
		v = url.Values{"date": {day.String()}}
	}
	var res report.DailySummary
	err := c.do(ctx, &sess, http.MethodGet, "/api/reports/daily-summary", v, nil, &res)
	return res, err
}

// MonthlySummary returns a student's meal counts for month (YYYY-MM).
func (c *Client) MonthlySummary(ctx context.Context, sess auth.Session, studentID, month string) (report.MonthlySummary, error) {
	var res report.MonthlySummary
	err := c.do(ctx, &sess, http.MethodGet, "/api/reports/monthly-student-summary",
		url.Values{"studentId": {studentID}, "month": {month}}, nil, &res)
	return res, err
}

// StudentLedger returns a student's ledger as an admin sees it.
func (c *Client) StudentLedger(ctx context.Context, sess auth.Session, id string) (report.StudentLedger, error) {
	var res report.StudentLedger
	err := c.do(ctx, &sess, http.MethodGet, "/api/reports/student-meal-ledger/"+url.PathEscape(id), nil, nil, &res)
	return res, err
}

// MyLedger returns the signed-in student's ledger.
func (c *Client) MyLedger(ctx context.Context, sess auth.Session) (mess.Ledger, error) {
	var res mess.Ledger
	err := c.do(ctx, &sess, http.MethodGet, "/api/student/my-ledger", nil, nil, &res)
	return res, err
}

// MyAttendance returns the signed-in student's records for month (YYYY-MM).
func (c *Client) MyAttendance(ctx context.Context, sess auth.Session, month string) ([]mess.AttendanceRecord, error) {
	var v url.Values
	if month != "" {
		v = url.Values{"month": {month}}
	}
	var res []mess.AttendanceRecord
	err := c.do(ctx, &sess, http.MethodGet, "/api/student/my-attendance", v, nil, &res)
	return res, err
}

// Menu returns the public mess board.
func (c *Client) Menu(ctx context.Context) (menu.Board, error) {
	var res menu.Board
	err := c.do(ctx, nil, http.MethodGet, "/api/menu", nil, nil, &res)
	return res, err
}
