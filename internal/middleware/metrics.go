package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradestats-sync/internal/service"
)

// Route groups used as the "group" label of the HTTP metrics.
const (
	RouteGroupSync      = "sync"
	RouteGroupOps       = "ops"
	RouteGroupUnmatched = "unmatched"
	RouteGroupOther     = "other"
)

var opsRoutes = map[string]struct{}{"/health": {}, "/ready": {}, "/metrics": {}}

// Metrics records every request against its route template. Requests that
// match no route share one label so scanners cannot blow up cardinality.
func Metrics(metricsSvc *service.MetricsService, apiPrefix string) gin.HandlerFunc {
	syncPrefix := strings.TrimRight(apiPrefix, "/") + "/sync"
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		group := RouteGroup(route, syncPrefix)
		if route == "" {
			route = RouteGroupUnmatched
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, group, route, c.Writer.Status(), time.Since(start))
	}
}

// RouteGroup classifies a route template.
func RouteGroup(route, syncPrefix string) string {
	switch {
	case route == "":
		return RouteGroupUnmatched
	case route == syncPrefix || strings.HasPrefix(route, syncPrefix+"/"):
		return RouteGroupSync
	default:
		if _, ok := opsRoutes[route]; ok {
			return RouteGroupOps
		}
		return RouteGroupOther
	}
}
