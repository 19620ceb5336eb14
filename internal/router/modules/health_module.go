package modules

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-water-tracker/pkg/response"
)

// Check reports whether one backing service is reachable.
type Check func(ctx context.Context) error

// HealthModule serves GET /health. It answers 503 when any check fails.
type HealthModule struct {
	Checks map[string]Check
}

func NewHealthModule(checks map[string]Check) *HealthModule {
	return &HealthModule{Checks: checks}
}

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", m.handle)
}

func (m *HealthModule) handle(c *gin.Context) {
	status := http.StatusOK
	deps := gin.H{}
	for name, check := range m.Checks {
		if err := check(c.Request.Context()); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}
	if status != http.StatusOK {
		response.Error[any](c, status, "unhealthy", deps)
		return
	}
	response.Success(c, status, deps, "ok", nil)
}
