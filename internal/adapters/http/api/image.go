package api

import (
	"net/http"

	"github.com/okian/imagestub/internal/domain/image"
	"github.com/okian/imagestub/pkg/logger"
	"github.com/okian/imagestub/pkg/metrics"
)

// ImageHandler serves the synthetic image artifact.
type ImageHandler struct {
	logger logger.Logger
}

// NewImageHandler creates a new image handler. l may be nil.
func NewImageHandler(l logger.Logger) *ImageHandler {
	return &ImageHandler{logger: l}
}

// HandleGet handles GET /image. The request is not inspected; the transport
// derives Content-Length from the body. Content-Type is suppressed so GET
// and HEAD carry the same header set.
func (h *ImageHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	w.Header()["Content-Type"] = nil
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(image.Payload())
	metrics.RecordImageBytesServed(r.Method, n)
	// A failed write is a client gone away; the transport tears the
	// connection down.
	if err != nil && h.logger != nil {
		h.logger.Debug(r.Context(), "image write failed",
			logger.Int("bytes", n),
			logger.Error(err),
		)
	}
}

// HandleHead handles HEAD /image. There is no body, so Content-Length must
// be declared explicitly to match what GET would send.
func (h *ImageHandler) HandleHead(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Length", image.ContentLength())
	w.WriteHeader(http.StatusOK)
}
