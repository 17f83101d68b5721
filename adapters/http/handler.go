package exporthttp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/goliatone/go-report/adapters/exportapi"
)

// Config configures the net/http adapter.
type Config = exportapi.Config

// Mux is satisfied by *http.ServeMux.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// Handler serves the report export endpoints on net/http.
type Handler struct {
	controller *exportapi.Controller
}

// NewHandler creates a net/http handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: exportapi.NewController(cfg)}
}

// Mount registers the handler for the base path and everything below it.
func (h *Handler) Mount(mux Mux) {
	base := h.controller.BasePath()
	mux.Handle(base, h)
	mux.Handle(base+"/", h)
}

// ServeHTTP runs the report workflow for one request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.controller.Serve(exchange{w: w, r: r}, exchange{w: w, r: r})
}

// exchange adapts one net/http round trip to the controller's request and
// response views.
type exchange struct {
	w http.ResponseWriter
	r *http.Request
}

var (
	_ exportapi.Request  = exchange{}
	_ exportapi.Response = exchange{}
)

func (x exchange) Context() context.Context  { return x.r.Context() }
func (x exchange) Method() string            { return x.r.Method }
func (x exchange) Path() string              { return x.r.URL.Path }
func (x exchange) Header(name string) string { return x.r.Header.Get(name) }
func (x exchange) Query(name string) string  { return x.r.URL.Query().Get(name) }
func (x exchange) Body() io.ReadCloser       { return x.r.Body }

func (x exchange) SetHeader(name, value string)   { x.w.Header().Set(name, value) }
func (x exchange) WriteHeader(status int)         { x.w.WriteHeader(status) }
func (x exchange) Write(data []byte) (int, error) { return x.w.Write(data) }

func (x exchange) WriteJSON(status int, payload any) error {
	x.w.Header().Set("Content-Type", "application/json")
	x.w.WriteHeader(status)
	return json.NewEncoder(x.w).Encode(payload)
}
