package controllers

import (
	"net/http"

	"github.com/aihub/rag-go/internal/di"
	"github.com/aihub/rag-go/internal/knowledge"
	"github.com/aihub/rag-go/internal/services"
)

// RootController 根控制器
type RootController struct {
	BaseController
}

func (c *RootController) Index() {
	c.JSONSuccess(map[string]string{"message": "RAG Service API"})
}

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
}

// Health 报告各组件就绪状态，任一未就绪返回503
func (c *HealthController) Health() {
	components := map[string]bool{}

	err := di.Invoke(func(embedder knowledge.Embedder, store knowledge.VectorStore, generator knowledge.Generator) {
		components["embedder"] = embedder.Ready()
		components["vector_store"] = store.Ready()
		components["generator"] = generator.Ready()
	})
	if err != nil {
		c.JSONError(http.StatusServiceUnavailable, "service unavailable")
		return
	}

	status := "healthy"
	code := http.StatusOK
	for _, ready := range components {
		if !ready {
			status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(code, map[string]interface{}{
		"status":     status,
		"components": components,
	})
}

// MetricsController Prometheus指标出口
type MetricsController struct {
	BaseController
}

func (c *MetricsController) Metrics() {
	var metrics *services.MetricsService
	if err := di.Invoke(func(m *services.MetricsService) { metrics = m }); err != nil {
		c.JSONError(http.StatusServiceUnavailable, "metrics unavailable")
		return
	}
	metrics.Handler().ServeHTTP(c.Ctx.ResponseWriter, c.Ctx.Request)
}
