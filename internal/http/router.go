package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAnalysisRoutes 注册血压分析相关路由
func (r *Router) RegisterAnalysisRoutes(h *AnalysisHandler) {
	// dataset upload
	r.Handle("/bp/api/v1/datasets", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.UploadDataset(w, req)
	})

	// dataset fetch by URL
	r.Handle("/bp/api/v1/datasets/fetch", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.FetchDataset(w, req)
	})

	// current analysis snapshot
	r.Handle("/bp/api/v1/analysis", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetAnalysis(w, req)
	})

	// report export (xlsx)
	r.Handle("/bp/api/v1/analysis/export", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ExportReport(w, req)
	})

	// threshold settings
	r.Handle("/bp/api/v1/settings", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.GetSettings(w, req)
		case http.MethodPut:
			h.PutSettings(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}
