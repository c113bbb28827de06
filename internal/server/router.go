package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/stackup/internal/control"
)

// Router provides embeddable HTTP handlers over the control surface.
// Endpoints:
//
//	POST {basePath}/start   query: group=... OR service=...
//	POST {basePath}/stop    query: group=... OR service=...
//	GET  {basePath}/status  query: name=... (optional; all services otherwise)
//	POST {basePath}/reload
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	ctl      *control.Control
	basePath string
}

// NewRouter constructs a Router with a configurable basePath.
// Example basePath: "/abc" results in /abc/start, /abc/stop, /abc/status.
func NewRouter(ctl *control.Control, basePath string) *Router {
	return &Router{ctl: ctl, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server or mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/start", r.handleStart)
	group.POST("/stop", r.handleStop)
	group.GET("/status", r.handleStatus)
	group.POST("/reload", r.handleReload)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, ctl *control.Control) (*http.Server, error) {
	r := NewRouter(ctl, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func selectors(c *gin.Context) (group, svc string, ok bool) {
	group = c.Query("group")
	svc = c.Query("service")
	if (group == "") == (svc == "") {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "exactly one of group, service query param required"})
		return "", "", false
	}
	return group, svc, true
}

func (r *Router) handleStart(c *gin.Context) {
	group, svc, ok := selectors(c)
	if !ok {
		return
	}
	var err error
	if group != "" {
		err = r.ctl.StartGroup(c.Request.Context(), group)
	} else {
		err = r.ctl.StartService(svc)
	}
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStop(c *gin.Context) {
	group, svc, ok := selectors(c)
	if !ok {
		return
	}
	var err error
	if group != "" {
		err = r.ctl.StopGroup(c.Request.Context(), group)
	} else {
		err = r.ctl.StopService(svc)
	}
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStatus(c *gin.Context) {
	sts, err := r.ctl.Status(c.Query("name"))
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, sts)
}

func (r *Router) handleReload(c *gin.Context) {
	if err := r.ctl.Reload(); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}
