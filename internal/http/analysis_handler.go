package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"wisefido-bp/internal/domain"
	"wisefido-bp/internal/parser"
	"wisefido-bp/internal/service"

	"go.uber.org/zap"
)

// 上传文件大小上限（家用监测仪导出通常在几百 KB 以内）
const maxUploadBytes = 10 << 20

// AnalysisHandler 血压分析 API 处理器
type AnalysisHandler struct {
	svc    service.AnalysisService
	fetch  *service.FetchClient
	logger *zap.Logger
}

func NewAnalysisHandler(svc service.AnalysisService, fetch *service.FetchClient, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{svc: svc, fetch: fetch, logger: logger}
}

// UploadDataset 上传 CSV 数据集并运行分析管道
// 支持 multipart 表单（字段名 file）或直接以请求体提交原始文本
func (h *AnalysisHandler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	name, raw, err := h.readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	snap, err := h.svc.LoadDataset(r.Context(), name, raw)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(snap))
}

// FetchDataset 从厂家云端 URL 下载 CSV 并运行分析管道
func (h *AnalysisHandler) FetchDataset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, Fail("请求参数错误：缺少 url"))
		return
	}
	name := req.Name
	if name == "" {
		name = req.URL
	}

	raw, err := h.fetch.FetchCSV(r.Context(), req.URL)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, Fail("下载CSV文件失败"))
		return
	}

	snap, err := h.svc.LoadDataset(r.Context(), name, raw)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(snap))
}

// GetAnalysis 返回最近一次分析快照
func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Snapshot(r.Context())
	if err != nil {
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(snap))
}

// GetSettings 返回当前阈值
func (h *AnalysisHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.svc.Settings()))
}

// PutSettings 替换阈值并在保留的原始数据上整体重算
func (h *AnalysisHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.ThresholdSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("请求参数错误"))
		return
	}

	snap, err := h.svc.ApplySettings(r.Context(), settings)
	if err != nil {
		if errors.Is(err, service.ErrInvalidThresholds) {
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
			return
		}
		h.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(snap))
}

// ExportReport 把当前快照渲染为 Excel 报表下载
// 导出失败只影响本次导出，内存中的分析结果不受影响
func (h *AnalysisHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Snapshot(r.Context())
	if err != nil {
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
		return
	}

	data, err := GenerateAnalysisReport(snap)
	if err != nil {
		h.logger.Error("Failed to generate analysis report", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("生成报告失败，请重试"))
		return
	}

	filename := fmt.Sprintf("血压分析报告_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	_, _ = w.Write(data)
}

// readUpload 读取 multipart 文件字段或原始请求体
func (h *AnalysisHandler) readUpload(r *http.Request) (string, string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", "", errors.New("读取上传文件失败")
		}
		return header.Filename, string(data), nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil || len(data) == 0 {
		return "", "", errors.New("请求中没有CSV数据")
	}
	return "upload.csv", string(data), nil
}

// writePipelineError 把管道错误映射为响应（缺列致命错误 / 无可用数据 / 未加载数据集）
func (h *AnalysisHandler) writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, parser.ErrMissingColumns):
		writeJSON(w, http.StatusUnprocessableEntity, Fail(err.Error()))
	case errors.Is(err, service.ErrNoUsableData):
		writeJSON(w, http.StatusUnprocessableEntity, Fail(err.Error()))
	case errors.Is(err, service.ErrNoDataset):
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
	default:
		h.logger.Error("Analysis pipeline failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("分析失败，请重试"))
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
