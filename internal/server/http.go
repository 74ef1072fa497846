package server

import (
	"context"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aptl-dev/aptl/internal/logging"
	"github.com/aptl-dev/aptl/internal/motor"
	"github.com/aptl-dev/aptl/internal/network"
)

// restartDelay lets the confirmation page reach the browser before restart.
const restartDelay = 250 * time.Millisecond

// Status is the device snapshot served on /api/status.
type Status struct {
	DeviceID        string              `json:"device_id"`
	DeviceName      string              `json:"device_name"`
	Version         string              `json:"version"`
	UptimeSeconds   int64               `json:"uptime_s"`
	StatusCode      int                 `json:"statusaptl"`
	Motor           motor.Status        `json:"motor"`
	LineCoordinates map[string]*float64 `json:"line_coordinates"` // null when unset
	WiFi            LinkStatus          `json:"wifi"`
	MQTT            LinkStatus          `json:"mqtt"`
}

// LinkStatus describes one network link.
type LinkStatus struct {
	Connected   bool   `json:"connected"`
	Target      string `json:"target,omitempty"` // SSID or broker URL
	AccessPoint bool   `json:"access_point,omitempty"`
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/", s.handlePortal)
	r.GET("/save", s.handleSave)

	api := r.Group("/api")
	api.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))
	api.GET("/status", s.handleStatus)
	api.GET("/networks", s.handleNetworks)

	if s.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}
	r.GET("/ws/telemetry", func(c *gin.Context) {
		s.hub.ServeWS(c.Writer, c.Request)
	})

	r.NoRoute(s.handleNoRoute)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Debug("HTTP request",
			zap.String("remote_addr", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	if s.deps.Status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "status unavailable"})
		return
	}
	c.JSON(http.StatusOK, s.deps.Status())
}

func (s *Server) handleNetworks(c *gin.Context) {
	aps, err := s.scan(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"networks": aps})
}

func (s *Server) scan(ctx context.Context) ([]network.AccessPoint, error) {
	if s.deps.Scanner == nil {
		return nil, nil
	}
	return s.deps.Scanner.Scan(ctx)
}

func (s *Server) handlePortal(c *gin.Context) {
	aps, err := s.scan(c.Request.Context())
	if err != nil {
		logging.Warn("Network scan failed", zap.Error(err))
	}
	logging.Info("Serving provisioning page", zap.Int("networks", len(aps)))

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := portalTemplate.Execute(c.Writer, portalPage{Networks: aps}); err != nil {
		logging.Error("Failed to render provisioning page", zap.Error(err))
	}
}

// handleSave persists the submitted credentials and restarts the device.
// An empty SSID is not saved but still restarts, like a plain reboot.
func (s *Server) handleSave(c *gin.Context) {
	ssid := c.Query("ssid")
	pass := c.Query("pass")

	if ssid != "" && s.deps.Credentials != nil {
		s.deps.Credentials.SetWiFiCredentials(ssid, pass)
		if err := s.deps.Credentials.Save(); err != nil {
			logging.Error("Failed to save Wi-Fi credentials", zap.Error(err))
			c.String(http.StatusInternalServerError, "failed to save configuration")
			return
		}
		logging.Info("Saved new Wi-Fi credentials",
			zap.String("ssid", ssid),
			zap.Bool("password_set", pass != ""),
		)
	} else {
		logging.Warn("No SSID provided; ignoring save request")
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(savedPage))

	if s.deps.Restart != nil {
		go func() {
			time.Sleep(restartDelay)
			s.deps.Restart()
		}()
	}
}

// handleNoRoute sends captive-portal probes to the provisioning page while
// the access point is up.
func (s *Server) handleNoRoute(c *gin.Context) {
	on, addr := s.portal()
	if on && !strings.HasPrefix(c.Request.URL.Path, "/api/") {
		target := "/"
		if addr != "" {
			target = "http://" + addr + "/"
		}
		c.Redirect(http.StatusFound, target)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

type portalPage struct {
	Networks []network.AccessPoint
}

const savedPage = "<html><body><h2>Saved. Device will restart...</h2></body></html>"

var portalTemplate = template.Must(template.New("portal").Parse(`<!doctype html><html><head><meta charset='utf-8'><title>APTL Provision</title>
<style>
body { font-family: Arial, sans-serif; text-align: center; padding: 50px; background: #f2f2f2; }
h2 { font-size: 56px; margin-bottom: 40px; }
form { display: inline-block; text-align: left; background: #fff; padding: 40px 60px; border-radius: 20px; box-shadow: 0 8px 16px rgba(0,0,0,0.2); }
label { font-size: 36px; display: block; margin-top: 30px; }
input, select { width: 100%; padding: 20px; margin-top: 10px; font-size: 32px; border: 2px solid #ccc; border-radius: 12px; }
input[type='submit'] { margin-top: 40px; background: #007BFF; color: white; border: none; cursor: pointer; font-size: 36px; padding: 20px 40px; border-radius: 12px; }
input[type='submit']:hover { background: #0056b3; }
p { font-size: 24px; margin-top: 30px; }
</style></head><body>
<h2>Configure WiFi</h2>
<form method='GET' action='/save'>
<label for='ssid'>Nearby networks:</label>
<select id='ssid' name='ssid'>
<option value="">-- Select network --</option>
{{range .Networks}}<option value="{{.SSID}}">{{.SSID}} ({{.RSSI}} dBm)</option>
{{end}}</select>
<label for='pass'>Password:</label>
<input type='password' id='pass' name='pass' />
<input type='submit' value='Save and Restart' />
</form>
<p>If your network does not appear, type SSID manually or refresh the page.</p>
</body></html>
`))
