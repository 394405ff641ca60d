package domain

import "time"

// 血压数值的有效范围（超出范围的行整行拒绝，不做截断）
const (
	SystolicMin  = 60
	SystolicMax  = 250
	DiastolicMin = 40
	DiastolicMax = 150
	PulseMin     = 40
	PulseMax     = 200
)

// Reading 一次原始血压测量（解析后不可变）
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	Systolic  int       `json:"systolic"`  // 高压 mmHg
	Diastolic int       `json:"diastolic"` // 低压 mmHg
	Pulse     int       `json:"pulse"`     // 脉搏 次/分
}

// Valid 检查三项数值是否都在有效范围内
func (r Reading) Valid() bool {
	return r.Systolic >= SystolicMin && r.Systolic <= SystolicMax &&
		r.Diastolic >= DiastolicMin && r.Diastolic <= DiastolicMax &&
		r.Pulse >= PulseMin && r.Pulse <= PulseMax
}

// BucketedReading 5 分钟桶内多次测量合并后的一条观察值
// Timestamp 为桶起始时间；三个通道取整后的平均值 + 桶内总体标准差（1 位小数）
type BucketedReading struct {
	Timestamp       time.Time `json:"timestamp"`
	Systolic        int       `json:"systolic"`
	Diastolic       int       `json:"diastolic"`
	Pulse           int       `json:"pulse"`
	SystolicStdDev  float64   `json:"systolicStdDev"`
	DiastolicStdDev float64   `json:"diastolicStdDev"`
	PulseStdDev     float64   `json:"pulseStdDev"`
}

// ThresholdSettings 用户可调的临床阈值（统计引擎和建议生成只读）
type ThresholdSettings struct {
	SystolicLimit  int `json:"systolicLimit"`
	DiastolicLimit int `json:"diastolicLimit"`
}

// DefaultThresholds 默认阈值 140/90
func DefaultThresholds() ThresholdSettings {
	return ThresholdSettings{SystolicLimit: 140, DiastolicLimit: 90}
}

// Valid 阈值必须落在对应通道的有效测量范围内
func (s ThresholdSettings) Valid() bool {
	return s.SystolicLimit >= SystolicMin && s.SystolicLimit <= SystolicMax &&
		s.DiastolicLimit >= DiastolicMin && s.DiastolicLimit <= DiastolicMax
}

// LineError 单行解析错误（不中断后续行）
type LineError struct {
	Line    int    `json:"line"`    // 文件内行号（表头为第 1 行）
	Content string `json:"content"` // 原始行内容
	Message string `json:"message"`
}
