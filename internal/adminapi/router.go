// Package adminapi exposes a read-only gin HTTP surface for operational
// introspection of the ring: health, Prometheus metrics, ring topology
// and per-server storage stats. It never carries document EDIT/GET
// traffic: that request path has no network transport.
package adminapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/developer-mesh/docring/pkg/docserver"
)

// RingView is the subset of *ring.Balancer this package depends on,
// narrowed to avoid an import cycle and to keep the handlers testable
// against a fake.
type RingView interface {
	Size() int
	Stats() []docserver.Stats
}

// NewRouter builds the gin engine serving the admin surface. registry may
// be nil, in which case /metrics serves an empty Prometheus registry
// instead of panicking.
func NewRouter(ring RingView, registry *prometheus.Registry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	router.GET("/metrics", gin.WrapH(handler))

	router.GET("/ring", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"size": ring.Size()})
	})

	router.GET("/servers/:id/stats", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid server id"})
			return
		}
		for _, s := range ring.Stats() {
			if uint64(s.ServerID) == id {
				c.JSON(http.StatusOK, s)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "no such server"})
	})

	return router
}
