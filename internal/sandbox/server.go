package sandbox

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/0xPratikag/clinicctl/internal/model"
)

// DefaultSecret signs sandbox tokens when Options.Secret is empty.
const DefaultSecret = "clinicctl-sandbox"

// Options configure a sandbox server.
type Options struct {
	// Secret signs login tokens.
	Secret string
	// TokenTTL is the lifetime of issued tokens. Zero means 12h.
	TokenTTL time.Duration
	// AllowOrigins lists browser origins allowed by CORS. Empty allows all.
	AllowOrigins []string
	// Logger receives one line per request when set.
	Logger *log.Logger
	// OnRequest is called for every request before routing.
	OnRequest func(method, path string)
}

// Server is the sandbox HTTP backend.
type Server struct {
	store  *Store
	opts   Options
	engine *gin.Engine
}

// Claims are carried by sandbox tokens.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// New builds the routes over store.
func New(store *Store, opts Options) *Server {
	if opts.Secret == "" {
		opts.Secret = DefaultSecret
	}
	if opts.TokenTTL == 0 {
		opts.TokenTTL = 12 * time.Hour
	}
	s := &Server{store: store, opts: opts}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLog())
	corsCfg := cors.DefaultConfig()
	if len(opts.AllowOrigins) > 0 {
		corsCfg.AllowOrigins = opts.AllowOrigins
		corsCfg.AllowCredentials = true
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AddAllowHeaders("Authorization")
	corsCfg.AddAllowMethods(http.MethodPatch)
	r.Use(cors.New(corsCfg))
	r.Use(s.injectFailures())

	r.POST("/login", s.login)

	api := r.Group("/")
	api.Use(s.authRequired())
	{
		api.GET("/attendance/branches", s.listBranches)
		api.GET("/attendance", s.listAttendance)
		api.GET("/attendance/:id/logs", s.attendanceLogs)
		api.PATCH("/attendance/:id/approval", s.updateApproval)

		api.GET("/devices", s.listDevices)
		api.GET("/devices/branches", s.deviceBranches)
		api.GET("/devices/commands", s.listCommands)
		api.POST("/devices/refresh-status", s.refreshStatus)
		api.POST("/devices/sync-from-idms", s.syncFromIDMS)
		api.POST("/devices/pull-logs", s.pullLogs)
		api.POST("/devices/sync-time", s.syncTime)
		api.PUT("/devices/:id", s.updateDevice)
		api.PATCH("/devices/:id/assign-branch", s.assignBranch)
		api.DELETE("/devices/:id", s.deleteDevice)
		api.GET("/getAllBranches", s.deviceBranches)

		api.GET("/idms/devices/raw", s.idmsRaw)
		api.POST("/idms/sync-attendance", s.syncAttendance)

		api.GET("/employees", s.listEmployees)
		api.GET("/employees/:id", s.employee)
		api.GET("/employees/:id/attendance", s.employeeAttendance)
	}

	s.engine = r
	return s
}

// ServeHTTP makes the server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Store returns the backing store.
func (s *Server) Store() *Store { return s.store }

// IssueToken signs a token for email with the server's secret.
func (s *Server) IssueToken(email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.Secret))
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.OnRequest != nil {
			s.opts.OnRequest(c.Request.Method, c.Request.URL.Path)
		}
		start := time.Now()
		c.Next()
		if s.opts.Logger != nil {
			s.opts.Logger.Printf("[REQ] %s %s status=%d dur=%s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
		}
	}
}

func (s *Server) injectFailures() gin.HandlerFunc {
	return func(c *gin.Context) {
		if f, ok := s.store.takeFailure(c.Request.Method, c.Request.URL.Path); ok {
			c.AbortWithStatusJSON(f.status, gin.H{"message": f.message})
			return
		}
		c.Next()
	}
}

func (s *Server) authRequired() gin.HandlerFunc {
	secret := []byte(s.opts.Secret)
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing token"})
			return
		}
		claims := &Claims{}
		parsed, err := jwt.ParseWithClaims(strings.TrimPrefix(h, "Bearer "), claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Next()
	}
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and password required"})
		return
	}
	u, ok := s.store.authenticate(req.Email, req.Password)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}
	tok, err := s.IssueToken(u.Email, u.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok, "role": u.Role})
}

func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	return page, limit
}

func optionalDay(c *gin.Context, key string) (model.Day, bool) {
	v := c.Query(key)
	if v == "" {
		return model.Day{}, true
	}
	d, err := model.ParseDay(v)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid " + key + " date"})
		return model.Day{}, false
	}
	return d, true
}

func (s *Server) listBranches(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Branches())
}

func (s *Server) listAttendance(c *gin.Context) {
	branchID := c.Query("branchId")
	if branchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "branchId is required"})
		return
	}
	from, ok := optionalDay(c, "from")
	if !ok {
		return
	}
	to, ok := optionalDay(c, "to")
	if !ok {
		return
	}
	var status model.ApprovalStatus
	if v := c.Query("status"); v != "" {
		st, err := model.ParseApprovalStatus(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid status"})
			return
		}
		status = st
	}
	page, limit := pageParams(c)
	data, total := s.store.Attendance(AttendanceFilter{
		BranchID: branchID,
		From:     from,
		To:       to,
		Status:   status,
		Q:        c.Query("q"),
	}, page, limit)
	c.JSON(http.StatusOK, gin.H{"data": data, "total": total})
}

func (s *Server) attendanceLogs(c *gin.Context) {
	rec, ok := s.store.Record(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Attendance not found"})
		return
	}
	logs := rec.Logs
	if logs == nil {
		logs = []model.PunchEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (s *Server) updateApproval(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid body"})
		return
	}
	st, err := model.ParseApprovalStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid status"})
		return
	}
	rec, ok := s.store.SetApproval(c.Param("id"), st)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Attendance not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) listDevices(c *gin.Context) {
	page, limit := pageParams(c)
	order := strings.ToLower(c.DefaultQuery("order", "desc"))
	data, total := s.store.Devices(DeviceFilter{
		Q:        c.Query("q"),
		Status:   c.Query("status"),
		BranchID: c.Query("branchId"),
		Order:    order,
	}, page, limit)
	c.JSON(http.StatusOK, gin.H{"data": data, "total": total})
}

func (s *Server) deviceBranches(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Branches())
}

func (s *Server) listCommands(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.store.Commands()})
}

func (s *Server) refreshStatus(c *gin.Context) {
	n := s.store.RefreshStatus()
	c.JSON(http.StatusOK, gin.H{"message": "Status refreshed", "devices": n})
}

func (s *Server) syncFromIDMS(c *gin.Context) {
	n := s.store.SyncFromIDMS()
	c.JSON(http.StatusOK, gin.H{"message": "Synced from iDMS", "added": n})
}

func (s *Server) idmsRaw(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.store.IDMSDevices()})
}

func (s *Server) checkSerials(c *gin.Context, serials []string) bool {
	if len(serials) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "serialNumbers required"})
		return false
	}
	if unknown := s.store.UnknownSerials(serials); len(unknown) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Unknown device serial: " + strings.Join(unknown, ", ")})
		return false
	}
	return true
}

func (s *Server) pullLogs(c *gin.Context) {
	var req model.PullLogsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid body"})
		return
	}
	if !s.checkSerials(c, req.SerialNumbers) {
		return
	}
	cmd := s.store.AddCommand(model.CommandPullLogs, req.SerialNumbers, model.CommandParams{From: req.From, To: req.To})
	c.JSON(http.StatusCreated, gin.H{"message": "Pull logs queued", "command": cmd})
}

func (s *Server) syncTime(c *gin.Context) {
	var req model.SyncTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid body"})
		return
	}
	if !s.checkSerials(c, req.SerialNumbers) {
		return
	}
	cmd := s.store.AddCommand(model.CommandSyncTime, req.SerialNumbers, model.CommandParams{DateTime: req.DateTime})
	c.JSON(http.StatusCreated, gin.H{"message": "Sync time queued", "command": cmd})
}

func (s *Server) updateDevice(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Location string `json:"location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid body"})
		return
	}
	if !s.store.UpdateDevice(c.Param("id"), req.Name, req.Location) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Device not found"})
		return
	}
	d, _ := s.store.Device(c.Param("id"))
	c.JSON(http.StatusOK, d)
}

func (s *Server) assignBranch(c *gin.Context) {
	var req struct {
		BranchID string `json:"branchId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.BranchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "branchId required"})
		return
	}
	deviceFound, branchFound := s.store.AssignBranch(c.Param("id"), req.BranchID)
	switch {
	case !deviceFound:
		c.JSON(http.StatusNotFound, gin.H{"message": "Device not found"})
	case !branchFound:
		c.JSON(http.StatusNotFound, gin.H{"message": "Branch not found"})
	default:
		d, _ := s.store.Device(c.Param("id"))
		c.JSON(http.StatusOK, d)
	}
}

func (s *Server) deleteDevice(c *gin.Context) {
	if !s.store.DeleteDevice(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Device not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}

func (s *Server) syncAttendance(c *gin.Context) {
	var req struct {
		From     string `json:"from"`
		To       string `json:"to"`
		DeviceID string `json:"deviceId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid body"})
		return
	}
	from, errFrom := model.ParseDay(req.From)
	to, errTo := model.ParseDay(req.To)
	if errFrom != nil || errTo != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "from and to are required (YYYY-MM-DD)"})
		return
	}
	n := s.store.CountAttendance(from, to, req.DeviceID)
	c.JSON(http.StatusOK, gin.H{
		"message":  "Attendance synced",
		"from":     req.From,
		"to":       req.To,
		"deviceId": req.DeviceID,
		"records":  n,
	})
}

func (s *Server) listEmployees(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Employees())
}

func (s *Server) employee(c *gin.Context) {
	e, ok := s.store.Employee(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Employee not found"})
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) employeeAttendance(c *gin.Context) {
	if _, ok := s.store.Employee(c.Param("id")); !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Employee not found"})
		return
	}
	from, ok := optionalDay(c, "from")
	if !ok {
		return
	}
	to, ok := optionalDay(c, "to")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.store.EmployeeAttendance(c.Param("id"), from, to))
}
