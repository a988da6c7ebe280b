package ingestion

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/pagebeat-io/pagebeat/internal/api/v1"
)

// EventSubmitter is the pipeline entry point the handler feeds.
// The admission buffer implements it.
type EventSubmitter interface {
	// Submit admits evt or fails fast with pipeline.ErrBufferFull.
	Submit(evt *v1.Event) error
}

type Service struct {
	buffer EventSubmitter
}

func NewService(buffer EventSubmitter) *Service {
	if buffer == nil {
		panic("ingestion: buffer must not be nil")
	}
	return &Service{buffer: buffer}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	// Collection endpoint hit by stats.js via a GET beacon.
	r.GET("/collect", s.CollectHandler)
}
