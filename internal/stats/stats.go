package stats

import (
	"math"

	"wisefido-bp/internal/aggregate"
	"wisefido-bp/internal/domain"
)

// 昼夜划分：本地小时 ∈ [6,18) 为日间，其余为夜间
const (
	dayStartHour = 6
	dayEndHour   = 18
)

// ChannelStats 单通道基础统计
type ChannelStats struct {
	Average float64 `json:"average"` // 1 位小数
	Max     int     `json:"max"`
	Min     int     `json:"min"`
}

// AbnormalStats 超阈值次数统计（阈值来自 ThresholdSettings）
type AbnormalStats struct {
	Total          int     `json:"total"`
	HighAbnormal   int     `json:"highAbnormal"`
	LowAbnormal    int     `json:"lowAbnormal"`
	HighPercentage float64 `json:"highPercentage"`
	LowPercentage  float64 `json:"lowPercentage"`
}

// DayNightStats 昼夜对比
// 任一分区为空时该分区均值与差值按 0 报告，且判定为非杓型
type DayNightStats struct {
	DayHighAvg   float64 `json:"dayHighAvg"`
	NightHighAvg float64 `json:"nightHighAvg"`
	DayLowAvg    float64 `json:"dayLowAvg"`
	NightLowAvg  float64 `json:"nightLowAvg"`
	HighDiff     float64 `json:"highDiff"` // (日-夜)/夜 ×100，1 位小数
	LowDiff      float64 `json:"lowDiff"`
	IsDipper     bool    `json:"isDipper"` // 两个通道昼夜差都 ≥10% 才是杓型
}

// CategoryStats 血压分级计数（五类互斥，按声明顺序首个命中生效）
type CategoryStats struct {
	Normal   int `json:"normal"`   // 正常血压 (<120/80)
	Elevated int `json:"elevated"` // 正常高值 (120-129/<80)
	Stage1   int `json:"stage1"`   // 轻度高血压 (130-139/80-89)
	Stage2   int `json:"stage2"`   // 中度高血压 (140-159/90-99)
	Stage3   int `json:"stage3"`   // 重度高血压 (≥160/≥100)
}

// Total 各类计数之和（与桶总数相等，分级是真划分）
func (c CategoryStats) Total() int {
	return c.Normal + c.Elevated + c.Stage1 + c.Stage2 + c.Stage3
}

// LoadStats 血压负荷：超阈值观察占比（总体 + 昼夜分区），1 位小数
type LoadStats struct {
	TotalLoad     float64 `json:"totalLoad"` // (高压超限+低压超限)/(2×总数)×100
	HighLoad      float64 `json:"highLoad"`
	LowLoad       float64 `json:"lowLoad"`
	DayHighLoad   float64 `json:"dayHighLoad"`
	NightHighLoad float64 `json:"nightHighLoad"`
	DayLowLoad    float64 `json:"dayLowLoad"`
	NightLowLoad  float64 `json:"nightLowLoad"`
}

// Bundle 一次完整分析的所有子报表
// 每个子报表都是 (桶序列, 阈值) 的纯函数，阈值变化时整体重算
type Bundle struct {
	Systolic  ChannelStats `json:"systolic"`
	Diastolic ChannelStats `json:"diastolic"`
	Pulse     ChannelStats `json:"pulse"`

	SystolicStdDev  float64 `json:"systolicStdDev"` // 桶均值序列的总体标准差
	DiastolicStdDev float64 `json:"diastolicStdDev"`
	PulseStdDev     float64 `json:"pulseStdDev"`

	Abnormal   AbnormalStats `json:"abnormal"`
	DayNight   DayNightStats `json:"dayNight"`
	Categories CategoryStats `json:"categories"`
	Load       LoadStats     `json:"load"`
}

// Compute 在桶序列上计算全部子报表
func Compute(buckets []domain.BucketedReading, settings domain.ThresholdSettings) Bundle {
	return Bundle{
		Systolic:        channelStats(buckets, systolic),
		Diastolic:       channelStats(buckets, diastolic),
		Pulse:           channelStats(buckets, pulse),
		SystolicStdDev:  aggregate.StdDev(channelValues(buckets, systolic)),
		DiastolicStdDev: aggregate.StdDev(channelValues(buckets, diastolic)),
		PulseStdDev:     aggregate.StdDev(channelValues(buckets, pulse)),
		Abnormal:        abnormalStats(buckets, settings),
		DayNight:        dayNightStats(buckets),
		Categories:      categoryStats(buckets),
		Load:            loadStats(buckets, settings),
	}
}

type channel func(domain.BucketedReading) int

func systolic(b domain.BucketedReading) int  { return b.Systolic }
func diastolic(b domain.BucketedReading) int { return b.Diastolic }
func pulse(b domain.BucketedReading) int     { return b.Pulse }

func channelValues(buckets []domain.BucketedReading, ch channel) []float64 {
	values := make([]float64, len(buckets))
	for i, b := range buckets {
		values[i] = float64(ch(b))
	}
	return values
}

func channelStats(buckets []domain.BucketedReading, ch channel) ChannelStats {
	if len(buckets) == 0 {
		return ChannelStats{}
	}
	max := ch(buckets[0])
	min := ch(buckets[0])
	sum := 0
	for _, b := range buckets {
		v := ch(b)
		sum += v
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return ChannelStats{
		Average: round1(float64(sum) / float64(len(buckets))),
		Max:     max,
		Min:     min,
	}
}

// abnormalStats 超阈值计数；空序列的百分比按 0 报告
func abnormalStats(buckets []domain.BucketedReading, settings domain.ThresholdSettings) AbnormalStats {
	s := AbnormalStats{Total: len(buckets)}
	for _, b := range buckets {
		if b.Systolic > settings.SystolicLimit {
			s.HighAbnormal++
		}
		if b.Diastolic > settings.DiastolicLimit {
			s.LowAbnormal++
		}
	}
	s.HighPercentage = percentage(s.HighAbnormal, s.Total)
	s.LowPercentage = percentage(s.LowAbnormal, s.Total)
	return s
}

func isDay(b domain.BucketedReading) bool {
	h := b.Timestamp.Hour()
	return h >= dayStartHour && h < dayEndHour
}

func dayNightStats(buckets []domain.BucketedReading) DayNightStats {
	var dayHigh, dayLow, nightHigh, nightLow []float64
	for _, b := range buckets {
		if isDay(b) {
			dayHigh = append(dayHigh, float64(b.Systolic))
			dayLow = append(dayLow, float64(b.Diastolic))
		} else {
			nightHigh = append(nightHigh, float64(b.Systolic))
			nightLow = append(nightLow, float64(b.Diastolic))
		}
	}

	s := DayNightStats{
		DayHighAvg:   round1(aggregate.Mean(dayHigh)),
		NightHighAvg: round1(aggregate.Mean(nightHigh)),
		DayLowAvg:    round1(aggregate.Mean(dayLow)),
		NightLowAvg:  round1(aggregate.Mean(nightLow)),
	}
	// 任一分区为空则无法比较昼夜节律，按非杓型处理
	if len(dayHigh) == 0 || len(nightHigh) == 0 {
		return s
	}
	s.HighDiff = percentDiff(aggregate.Mean(dayHigh), aggregate.Mean(nightHigh))
	s.LowDiff = percentDiff(aggregate.Mean(dayLow), aggregate.Mean(nightLow))
	s.IsDipper = s.HighDiff >= 10 && s.LowDiff >= 10
	return s
}

// categoryStats 分级条件按固定顺序求值，首个命中生效
// stage1 的 OR 条件在 stage2 之前检查：135/95 判为 stage1（兼容既有行为）
func categoryStats(buckets []domain.BucketedReading) CategoryStats {
	var c CategoryStats
	for _, b := range buckets {
		high, low := b.Systolic, b.Diastolic
		switch {
		case high < 120 && low < 80:
			c.Normal++
		case high >= 120 && high <= 129 && low < 80:
			c.Elevated++
		case (high >= 130 && high <= 139) || (low >= 80 && low <= 89):
			c.Stage1++
		case (high >= 140 && high <= 159) || (low >= 90 && low <= 99):
			c.Stage2++
		case high >= 160 || low >= 100:
			c.Stage3++
		}
	}
	return c
}

func loadStats(buckets []domain.BucketedReading, settings domain.ThresholdSettings) LoadStats {
	var highLoad, lowLoad int
	var dayTotal, nightTotal int
	var dayHighLoad, nightHighLoad, dayLowLoad, nightLowLoad int

	for _, b := range buckets {
		highOver := b.Systolic > settings.SystolicLimit
		lowOver := b.Diastolic > settings.DiastolicLimit
		if highOver {
			highLoad++
		}
		if lowOver {
			lowLoad++
		}
		if isDay(b) {
			dayTotal++
			if highOver {
				dayHighLoad++
			}
			if lowOver {
				dayLowLoad++
			}
		} else {
			nightTotal++
			if highOver {
				nightHighLoad++
			}
			if lowOver {
				nightLowLoad++
			}
		}
	}

	total := len(buckets)
	return LoadStats{
		TotalLoad:     percentage(highLoad+lowLoad, 2*total),
		HighLoad:      percentage(highLoad, total),
		LowLoad:       percentage(lowLoad, total),
		DayHighLoad:   percentage(dayHighLoad, dayTotal),
		NightHighLoad: percentage(nightHighLoad, nightTotal),
		DayLowLoad:    percentage(dayLowLoad, dayTotal),
		NightLowLoad:  percentage(nightLowLoad, nightTotal),
	}
}

// percentage count/total×100，1 位小数；total 为 0 时报 0
func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(count) / float64(total) * 100)
}

func percentDiff(day, night float64) float64 {
	if night == 0 {
		return 0
	}
	return round1((day - night) / night * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
