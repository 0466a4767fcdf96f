// Package fake provides an in-memory HRM backend for tests and examples.
//
// The server speaks the real wire protocol: enveloped JSON responses, HS256
// access tokens with an exp claim, and an HttpOnly rotation cookie that is
// rotated on every refresh. Protected endpoints verify the bearer token the
// way the production backend does, so SDK tests exercise the full
// login → 401 → refresh → retry path without a network.
package fake

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	hrm "github.com/openhrms/hrm-go"
)

const refreshCookieName = "hrm_refresh"

type account struct {
	password string
	user     hrm.User
}

// Server is an in-memory HRM backend.
type Server struct {
	key      []byte
	tokenTTL time.Duration

	mu             sync.Mutex
	accounts       map[string]*account // username → account
	refreshCookies map[string]string   // cookie value → username
	employees      []hrm.Employee
	leaveRequests  []hrm.LeaveRequest
	leaveBalances  map[string][]hrm.LeaveBalance // employee ID → balances
	failRefresh    bool

	loginCalls   atomic.Int32
	refreshCalls atomic.Int32

	srv *httptest.Server
}

// Option configures the Server.
type Option func(*Server)

// WithUser seeds an account.
func WithUser(username, password string, user hrm.User) Option {
	return func(s *Server) {
		s.accounts[username] = &account{password: password, user: user}
	}
}

// WithTokenTTL sets the lifetime of issued access tokens. Default: 1 hour.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) { s.tokenTTL = d }
}

// WithEmployees seeds the employee directory.
func WithEmployees(emps ...hrm.Employee) Option {
	return func(s *Server) { s.employees = append(s.employees, emps...) }
}

// WithLeaveRequests seeds leave requests.
func WithLeaveRequests(reqs ...hrm.LeaveRequest) Option {
	return func(s *Server) { s.leaveRequests = append(s.leaveRequests, reqs...) }
}

// WithLeaveBalances seeds the leave balances for an employee.
func WithLeaveBalances(employeeID string, balances ...hrm.LeaveBalance) Option {
	return func(s *Server) { s.leaveBalances[employeeID] = balances }
}

// NewServer starts an in-memory HRM backend. Callers must Close it.
func NewServer(opts ...Option) *Server {
	s := &Server{
		key:            []byte(uuid.NewString()),
		tokenTTL:       time.Hour,
		accounts:       make(map[string]*account),
		refreshCookies: make(map[string]string),
		leaveBalances:  make(map[string][]hrm.LeaveBalance),
	}
	for _, o := range opts {
		o(s)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.POST("/auth/login", s.handleLogin)
	r.POST("/auth/refresh-token", s.handleRefresh)
	r.POST("/auth/logout", s.handleLogout)
	r.POST("/auth/register", s.handleRegister)
	r.POST("/auth/change-password", s.handleChangePassword)
	r.POST("/auth/forgot-password", s.handleAccepted)
	r.POST("/auth/reset-password", s.handleAccepted)

	api := r.Group("/api", s.requireBearer)
	api.GET("/employees", s.handleListEmployees)
	api.GET("/employees/:id", s.handleGetEmployee)
	api.POST("/employees", s.handleCreateEmployee)
	api.PUT("/employees/:id", s.handleUpdateEmployee)
	api.DELETE("/employees/:id", s.handleDeleteEmployee)
	api.GET("/leave-requests", s.handleListLeave)
	api.POST("/leave-requests", s.handleSubmitLeave)
	api.POST("/leave-requests/:id/approve", s.handleApproveLeave)
	api.POST("/leave-requests/:id/reject", s.handleRejectLeave)
	api.GET("/leave-balances/:id", s.handleLeaveBalances)

	s.srv = httptest.NewServer(r)
	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string { return s.srv.URL }

// Close shuts the server down.
func (s *Server) Close() { s.srv.Close() }

// LoginCalls returns how many login requests the server has received.
func (s *Server) LoginCalls() int { return int(s.loginCalls.Load()) }

// RefreshCalls returns how many refresh requests the server has received.
// Single-flight tests assert on this.
func (s *Server) RefreshCalls() int { return int(s.refreshCalls.Load()) }

// SetTokenTTL changes the lifetime of subsequently issued tokens. Tests set
// a negative TTL to force an expired token, then restore a positive one so
// the refreshed token is accepted.
func (s *Server) SetTokenTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = d
}

func (s *Server) ttl() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenTTL
}

// FailRefresh makes every subsequent refresh call fail with 401.
func (s *Server) FailRefresh(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRefresh = fail
}

// IssueToken mints an access token for username with the given lifetime.
// Negative lifetimes produce an already-expired token.
func (s *Server) IssueToken(username string, ttl time.Duration) string {
	s.mu.Lock()
	acct := s.accounts[username]
	s.mu.Unlock()

	claims := jwt.MapClaims{
		"sub": username,
		"exp": time.Now().Add(ttl).Unix(),
		"iat": time.Now().Unix(),
	}
	if acct != nil {
		claims["sub"] = acct.user.ID
		claims["username"] = acct.user.Username
		claims["roles"] = acct.user.Roles
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	return token
}

// --- identity endpoints ---

func (s *Server) handleLogin(c *gin.Context) {
	s.loginCalls.Add(1)

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, false, "invalid request body", nil)
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[req.Username]
	s.mu.Unlock()
	if !ok || acct.password != req.Password {
		respond(c, http.StatusUnauthorized, false, "invalid username or password", nil)
		return
	}

	ttl := s.ttl()
	s.setRotationCookie(c, req.Username)
	respond(c, http.StatusOK, true, "", gin.H{
		"accessToken": s.IssueToken(req.Username, ttl),
		"tokenType":   "Bearer",
		"expiresIn":   int64(ttl.Seconds()),
		"user":        acct.user,
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	fail := s.failRefresh
	s.mu.Unlock()
	if fail {
		respond(c, http.StatusUnauthorized, false, "refresh token revoked", nil)
		return
	}

	// The rotation credential arrives only via the cookie, never the body.
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil {
		respond(c, http.StatusUnauthorized, false, "missing refresh token", nil)
		return
	}

	s.mu.Lock()
	username, ok := s.refreshCookies[cookie]
	if ok {
		delete(s.refreshCookies, cookie)
	}
	s.mu.Unlock()
	if !ok {
		respond(c, http.StatusUnauthorized, false, "invalid refresh token", nil)
		return
	}

	var req struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.AccessToken == "" {
		respond(c, http.StatusBadRequest, false, "missing access token", nil)
		return
	}

	ttl := s.ttl()
	s.setRotationCookie(c, username)
	respond(c, http.StatusOK, true, "", gin.H{
		"accessToken": s.IssueToken(username, ttl),
		"tokenType":   "Bearer",
		"expiresIn":   int64(ttl.Seconds()),
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	if cookie, err := c.Cookie(refreshCookieName); err == nil {
		s.mu.Lock()
		delete(s.refreshCookies, cookie)
		s.mu.Unlock()
	}
	c.SetCookie(refreshCookieName, "", -1, "/", "", false, true)
	respond(c, http.StatusOK, true, "", nil)
}

func (s *Server) handleRegister(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
		FullName string `json:"fullName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		respond(c, http.StatusBadRequest, false, "invalid registration", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[req.Username]; exists {
		respond(c, http.StatusBadRequest, false, "username already taken", nil)
		return
	}
	s.accounts[req.Username] = &account{
		password: req.Password,
		user: hrm.User{
			ID:       uuid.NewString(),
			Username: req.Username,
			Email:    req.Email,
			FullName: req.FullName,
			Roles:    []string{hrm.DefaultRole},
			IsActive: true,
		},
	}
	respond(c, http.StatusOK, true, "", nil)
}

func (s *Server) handleChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.NewPassword != req.ConfirmPassword {
		respond(c, http.StatusBadRequest, false, "passwords do not match", nil)
		return
	}
	respond(c, http.StatusOK, true, "", nil)
}

func (s *Server) handleAccepted(c *gin.Context) {
	respond(c, http.StatusOK, true, "", nil)
}

// --- protected endpoints ---

// requireBearer verifies the HS256 bearer token, including expiry.
func (s *Server) requireBearer(c *gin.Context) {
	tokenStr := extractBearerToken(c.Request)
	if tokenStr == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			gin.H{"succeeded": false, "message": "missing authorization token"})
		return
	}

	_, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.key, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			gin.H{"succeeded": false, "message": "invalid or expired token"})
		return
	}

	c.Next()
}

func (s *Server) handleListEmployees(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	s.mu.Lock()
	all := make([]hrm.Employee, len(s.employees))
	copy(all, s.employees)
	s.mu.Unlock()

	total := len(all)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	respond(c, http.StatusOK, true, "", gin.H{
		"items":      all[start:end],
		"totalCount": total,
	})
}

func (s *Server) handleGetEmployee(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.employees {
		if e.ID == id {
			respond(c, http.StatusOK, true, "", e)
			return
		}
	}
	respond(c, http.StatusNotFound, false, "employee not found", nil)
}

func (s *Server) handleCreateEmployee(c *gin.Context) {
	var emp hrm.Employee
	if err := c.ShouldBindJSON(&emp); err != nil {
		respond(c, http.StatusBadRequest, false, "invalid employee", nil)
		return
	}
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}
	s.mu.Lock()
	s.employees = append(s.employees, emp)
	s.mu.Unlock()
	respond(c, http.StatusOK, true, "", emp)
}

func (s *Server) handleUpdateEmployee(c *gin.Context) {
	var emp hrm.Employee
	if err := c.ShouldBindJSON(&emp); err != nil {
		respond(c, http.StatusBadRequest, false, "invalid employee", nil)
		return
	}
	id := c.Param("id")
	emp.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.employees {
		if e.ID == id {
			s.employees[i] = emp
			respond(c, http.StatusOK, true, "", emp)
			return
		}
	}
	respond(c, http.StatusNotFound, false, "employee not found", nil)
}

func (s *Server) handleDeleteEmployee(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.employees {
		if e.ID == id {
			s.employees = append(s.employees[:i], s.employees[i+1:]...)
			respond(c, http.StatusOK, true, "", nil)
			return
		}
	}
	respond(c, http.StatusNotFound, false, "employee not found", nil)
}

func (s *Server) handleListLeave(c *gin.Context) {
	s.mu.Lock()
	all := make([]hrm.LeaveRequest, len(s.leaveRequests))
	copy(all, s.leaveRequests)
	s.mu.Unlock()

	respond(c, http.StatusOK, true, "", gin.H{
		"items":      all,
		"totalCount": len(all),
	})
}

func (s *Server) handleSubmitLeave(c *gin.Context) {
	var req hrm.LeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, false, "invalid leave request", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = "pending"
	s.mu.Lock()
	s.leaveRequests = append(s.leaveRequests, req)
	s.mu.Unlock()
	respond(c, http.StatusOK, true, "", req)
}

func (s *Server) handleApproveLeave(c *gin.Context) {
	s.setLeaveStatus(c, c.Param("id"), "approved", "")
}

func (s *Server) handleRejectLeave(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	s.setLeaveStatus(c, c.Param("id"), "rejected", req.Reason)
}

func (s *Server) setLeaveStatus(c *gin.Context, id, status, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.leaveRequests {
		if s.leaveRequests[i].ID == id {
			if s.leaveRequests[i].Status != "pending" {
				respond(c, http.StatusBadRequest, false, "leave request already decided", nil)
				return
			}
			s.leaveRequests[i].Status = status
			s.leaveRequests[i].RejectionReason = reason
			respond(c, http.StatusOK, true, "", s.leaveRequests[i])
			return
		}
	}
	respond(c, http.StatusNotFound, false, "leave request not found", nil)
}

func (s *Server) handleLeaveBalances(c *gin.Context) {
	s.mu.Lock()
	balances, ok := s.leaveBalances[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		respond(c, http.StatusNotFound, false, "employee not found", nil)
		return
	}
	respond(c, http.StatusOK, true, "", gin.H{"balances": balances})
}

// --- helpers ---

func (s *Server) setRotationCookie(c *gin.Context, username string) {
	value := uuid.NewString()
	s.mu.Lock()
	s.refreshCookies[value] = username
	s.mu.Unlock()
	c.SetCookie(refreshCookieName, value, int((30 * 24 * time.Hour).Seconds()), "/", "", false, true)
}

func respond(c *gin.Context, status int, succeeded bool, message string, data any) {
	c.JSON(status, gin.H{
		"succeeded": succeeded,
		"message":   message,
		"data":      data,
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
