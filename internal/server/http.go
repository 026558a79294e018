package server

import (
	nethttp "net/http"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/opinion_radar/internal/service"
	"github.com/iWorld-y/opinion_radar/pkg/config"
)

// NewHTTPServer 创建 HTTP 服务并注册路由
func NewHTTPServer(cfg *config.Config, svc *service.AnalysisService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
		http.Filter(corsFilter),
	}
	if cfg.Server.Addr != "" {
		opts = append(opts, http.Address(cfg.Server.Addr))
	}
	if cfg.Server.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Server.Timeout); err == nil {
			opts = append(opts, http.Timeout(d))
		}
	}

	srv := http.NewServer(opts...)

	r := srv.Route("/")
	r.POST("/api/analyze", svc.Analyze)
	r.GET("/api/analysis/{id}", svc.GetAnalysis)
	r.GET("/api/analyses/all", svc.ListAnalyses)
	r.POST("/api/analysis/save", svc.SaveAnalysis)
	r.GET("/health", svc.Health)

	return srv
}

// corsFilter 前端跨域访问支持
func corsFilter(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, req *nethttp.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if req.Method == nethttp.MethodOptions {
			w.WriteHeader(nethttp.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}
