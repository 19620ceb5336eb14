package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-water-tracker/pkg/response"
)

// Registry collects the modules mounted under /api and the middleware that
// applies to all of them.
type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{Engine: engine, API: engine.Group("/api")}
}

// Use adds middleware for every /api route. It must be called before RegisterAll.
func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

// RegisterAll mounts every module and answers unknown routes with the JSON
// error envelope.
func (r *Registry) RegisterAll() {
	r.API.Use(r.middlewares...)
	for _, m := range r.modules {
		m.Register(r.API)
	}
	r.Engine.HandleMethodNotAllowed = true
	r.Engine.NoRoute(func(c *gin.Context) {
		response.Error[any](c, http.StatusNotFound, "route not found", nil)
	})
	r.Engine.NoMethod(func(c *gin.Context) {
		response.Error[any](c, http.StatusMethodNotAllowed, "method not allowed", nil)
	})
}
