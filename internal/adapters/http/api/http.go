// Package api declares the image responder's HTTP routes and handlers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/imagestub/pkg/logger"
)

// Route patterns. GET and HEAD are registered separately so that HEAD never
// falls through to the GET handler.
const (
	ImagePath         = "/image"
	patternGetImage   = http.MethodGet + " " + ImagePath
	patternHeadImage  = http.MethodHead + " " + ImagePath
	endpointImage     = "image"
	endpointUnmatched = "unmatched"
)

// Server wires the responder's routing table.
type Server struct {
	imageHandler *ImageHandler
	logger       logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger enables the access log middleware.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(opts ...Option) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	s.imageHandler = NewImageHandler(s.logger)
	return s
}

// Register attaches the image routes to mux. Unmatched paths and methods
// are left to the mux defaults.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc(patternGetImage, s.imageHandler.HandleGet)
	mux.HandleFunc(patternHeadImage, s.imageHandler.HandleHead)
}

// Handler returns a fresh mux with all routes registered. The whole mux is
// instrumented, so the mux's own 404/405 replies are counted too.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	s.Register(ctx, mux)

	h := MetricsMiddleware(mux, endpointOf)
	if s.logger != nil {
		h = LoggingMiddleware(s.logger, h)
	}
	return h
}

// endpointOf maps a request onto a bounded metrics label.
func endpointOf(r *http.Request) string {
	if r.URL.Path == ImagePath {
		return endpointImage
	}
	return endpointUnmatched
}
