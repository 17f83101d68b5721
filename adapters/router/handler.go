package exportrouter

import (
	"bytes"
	"context"
	"io"

	"github.com/goliatone/go-report/adapters/exportapi"
	"github.com/goliatone/go-router"
)

// Config configures the go-router adapter.
type Config = exportapi.Config

// Handler serves the report export endpoints on a go-router router.
type Handler struct {
	controller *exportapi.Controller
}

// NewHandler creates a go-router handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: exportapi.NewController(cfg)}
}

// RegisterRoutes mounts the report routes on r. Routers without the verb
// methods are ignored.
func (h *Handler) RegisterRoutes(r any) {
	routes, ok := r.(reportRoutes)
	if !ok {
		return
	}
	base := h.controller.BasePath()
	routes.Post(base, h.Handle)
	routes.Get(base, h.Handle)
	routes.Get(base+"/:id", h.Handle)
	routes.Get(base+"/:id/status", h.Handle)
	routes.Delete(base+"/:id", h.Handle)
}

// Handle runs the report workflow for one routed request.
func (h *Handler) Handle(c router.Context) error {
	h.controller.Serve(routed{c}, routed{c})
	return nil
}

type reportRoutes interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// routed adapts a router context to the controller's request and response
// views. Router contexts buffer the body, so Body returns a copy.
type routed struct {
	c router.Context
}

var (
	_ exportapi.Request  = routed{}
	_ exportapi.Response = routed{}
)

func (r routed) Context() context.Context  { return r.c.Context() }
func (r routed) Method() string            { return r.c.Method() }
func (r routed) Path() string              { return r.c.Path() }
func (r routed) Header(name string) string { return r.c.Header(name) }
func (r routed) Query(name string) string  { return r.c.Query(name) }
func (r routed) Body() io.ReadCloser       { return io.NopCloser(bytes.NewReader(r.c.Body())) }

func (r routed) SetHeader(name, value string) { r.c.SetHeader(name, value) }
func (r routed) WriteHeader(status int)       { r.c.Status(status) }

func (r routed) Write(data []byte) (int, error) {
	if err := r.c.Send(data); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (r routed) WriteJSON(status int, payload any) error {
	return r.c.JSON(status, payload)
}
