package router

import (
	"github.com/beego/beego/v2/server/web"

	"github.com/aihub/rag-go/app/controllers"
)

// Init registers all routes. Must be called after config is loaded.
func Init() {
	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")
	web.Router("/metrics", &controllers.MetricsController{}, "get:Metrics")

	ragController := &controllers.RagController{}
	web.Router("/api/rag/ask", ragController, "post:Ask")
	web.Router("/api/rag/ingest", ragController, "post:Ingest")
	web.Router("/api/rag/ingest/file", ragController, "post:IngestFile")
}
