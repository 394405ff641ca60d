package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"wisefido-bp/internal/aggregate"
	"wisefido-bp/internal/config"
	"wisefido-bp/internal/domain"
	"wisefido-bp/internal/parser"
	"wisefido-bp/internal/stats"
	"wisefido-bp/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNoDataset 尚未加载任何数据集
	ErrNoDataset = errors.New("尚未加载血压数据")
	// ErrNoUsableData 解析后没有任何有效测量，管道不进入聚合/统计阶段
	ErrNoUsableData = errors.New("文件中没有可用的血压数据")
	// ErrInvalidThresholds 阈值超出有效测量范围
	ErrInvalidThresholds = errors.New("阈值超出有效范围")
)

// Snapshot 一次完整管道运行的输出（渲染层/导出层只消费此结构）
type Snapshot struct {
	DatasetID       string                   `json:"datasetId"`
	DatasetName     string                   `json:"datasetName"`
	GeneratedAt     time.Time                `json:"generatedAt"`
	Settings        domain.ThresholdSettings `json:"settings"`
	OriginalCount   int                      `json:"originalCount"`  // 原始数据点数
	BucketCount     int                      `json:"bucketCount"`    // 5 分钟合并后数据点数
	ParseErrors     []domain.LineError       `json:"parseErrors,omitempty"`
	Buckets         []domain.BucketedReading `json:"buckets"`
	Stats           stats.Bundle             `json:"stats"`
	Recommendations []string                 `json:"recommendations"`
}

// AnalysisService 血压分析管道服务
type AnalysisService interface {
	// LoadDataset 解析原始 CSV 文本并运行完整分析管道
	LoadDataset(ctx context.Context, name string, raw string) (*Snapshot, error)

	// ApplySettings 替换阈值并在保留的原始数据上整体重算
	ApplySettings(ctx context.Context, settings domain.ThresholdSettings) (*Snapshot, error)

	// Snapshot 返回最近一次成功分析的结果
	Snapshot(ctx context.Context) (*Snapshot, error)

	// Settings 返回当前阈值
	Settings() domain.ThresholdSettings
}

type analysisService struct {
	kv          store.KV
	logger      *zap.Logger
	snapshotTTL time.Duration

	mu       sync.Mutex
	settings domain.ThresholdSettings
	// 保留的原始测量列表：阈值变更时管道在它上面整体重跑，无增量计算
	readings    []domain.Reading
	parseErrors []domain.LineError
	datasetName string
	last        *Snapshot
}

// NewAnalysisService 创建分析服务；初始阈值来自配置
func NewAnalysisService(cfg *config.Config, kv store.KV, logger *zap.Logger) AnalysisService {
	return &analysisService{
		kv:          kv,
		logger:      logger,
		snapshotTTL: time.Duration(cfg.SnapshotTTLSeconds) * time.Second,
		settings: domain.ThresholdSettings{
			SystolicLimit:  cfg.Thresholds.SystolicLimit,
			DiastolicLimit: cfg.Thresholds.DiastolicLimit,
		},
	}
}

func (s *analysisService) LoadDataset(ctx context.Context, name string, raw string) (*Snapshot, error) {
	res, err := parser.ParseCSV(raw)
	if err != nil {
		s.logger.Warn("Failed to parse dataset",
			zap.String("dataset_name", name),
			zap.Error(err),
		)
		return nil, err
	}

	if len(res.Errors) > 0 {
		s.logger.Warn("Dataset contains invalid lines",
			zap.String("dataset_name", name),
			zap.Int("error_count", len(res.Errors)),
		)
	}
	if len(res.Readings) == 0 {
		return nil, ErrNoUsableData
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = res.Readings
	s.parseErrors = res.Errors
	s.datasetName = name
	return s.runLocked(ctx)
}

func (s *analysisService) ApplySettings(ctx context.Context, settings domain.ThresholdSettings) (*Snapshot, error) {
	if !settings.Valid() {
		return nil, ErrInvalidThresholds
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	if len(s.readings) == 0 {
		return nil, ErrNoDataset
	}
	return s.runLocked(ctx)
}

func (s *analysisService) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, ErrNoDataset
	}
	return s.last, nil
}

func (s *analysisService) Settings() domain.ThresholdSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// runLocked 在保留的原始数据上运行完整管道（聚合 → 统计 → 建议）
// 调用方必须持有 s.mu；新结果整体替换旧结果
func (s *analysisService) runLocked(ctx context.Context) (*Snapshot, error) {
	buckets := aggregate.BucketReadings(s.readings)
	bundle := stats.Compute(buckets, s.settings)

	snap := &Snapshot{
		DatasetID:       uuid.NewString(),
		DatasetName:     s.datasetName,
		GeneratedAt:     time.Now(),
		Settings:        s.settings,
		OriginalCount:   len(s.readings),
		BucketCount:     len(buckets),
		ParseErrors:     s.parseErrors,
		Buckets:         buckets,
		Stats:           bundle,
		Recommendations: stats.Recommendations(bundle),
	}
	s.last = snap

	s.cacheSnapshot(ctx, snap)

	s.logger.Info("Analysis pipeline completed",
		zap.String("dataset_id", snap.DatasetID),
		zap.String("dataset_name", snap.DatasetName),
		zap.Int("original_count", snap.OriginalCount),
		zap.Int("bucket_count", snap.BucketCount),
		zap.Int("parse_error_count", len(snap.ParseErrors)),
		zap.Int("systolic_limit", s.settings.SystolicLimit),
		zap.Int("diastolic_limit", s.settings.DiastolicLimit),
	)
	return snap, nil
}

// cacheSnapshot 把序列化后的快照写入 KV 供渲染层拉取
// 缓存只是加速层，写入失败不影响管道结果（内存中的快照才是权威数据）
func (s *analysisService) cacheSnapshot(ctx context.Context, snap *Snapshot) {
	if s.kv == nil {
		return
	}
	jsonData, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error("Failed to marshal snapshot", zap.Error(err))
		return
	}
	key := fmt.Sprintf("bp:analysis:%s:full", snap.DatasetID)
	if err := s.kv.Set(ctx, key, string(jsonData), s.snapshotTTL); err != nil {
		s.logger.Warn("Failed to cache snapshot",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
