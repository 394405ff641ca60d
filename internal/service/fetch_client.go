package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// FetchClient 从监测仪厂家云端拉取 CSV 导出文件的客户端
type FetchClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewFetchClient 创建下载客户端
func NewFetchClient(timeout time.Duration, logger *zap.Logger) *FetchClient {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "text/csv, text/plain, */*")

	return &FetchClient{
		httpClient: client,
		logger:     logger,
	}
}

// FetchCSV 下载 URL 指向的 CSV 导出文本
func (c *FetchClient) FetchCSV(ctx context.Context, url string) (string, error) {
	c.logger.Info("Fetching CSV export", zap.String("url", url))

	resp, err := c.httpClient.R().SetContext(ctx).Get(url)
	if err != nil {
		c.logger.Error("CSV fetch failed",
			zap.String("url", url),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to fetch CSV: %w", err)
	}
	if resp.StatusCode() != 200 {
		c.logger.Error("CSV fetch returned non-200 status",
			zap.String("url", url),
			zap.Int("status_code", resp.StatusCode()),
		)
		return "", fmt.Errorf("failed to fetch CSV: status %d", resp.StatusCode())
	}

	body := resp.String()
	c.logger.Info("Fetched CSV export",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
	)
	return body, nil
}
