package aggregate

import (
	"math"
	"sort"
	"time"

	"wisefido-bp/internal/domain"
)

// BucketInterval 合并间隔：同一 5 分钟窗口内的多次测量视为一次临床观察
const BucketInterval = 5 * time.Minute

// BucketReadings 将原始测量按 5 分钟桶合并
// 每桶输出通道平均值（四舍五入取整）和桶内总体标准差（1 位小数），按桶时间升序
func BucketReadings(readings []domain.Reading) []domain.BucketedReading {
	if len(readings) == 0 {
		return nil
	}

	type group struct {
		start     time.Time
		systolic  []float64
		diastolic []float64
		pulse     []float64
	}

	groups := make(map[int64]*group)
	for _, r := range readings {
		start := floorToBucket(r.Timestamp)
		key := start.Unix()
		g, ok := groups[key]
		if !ok {
			g = &group{start: start}
			groups[key] = g
		}
		g.systolic = append(g.systolic, float64(r.Systolic))
		g.diastolic = append(g.diastolic, float64(r.Diastolic))
		g.pulse = append(g.pulse, float64(r.Pulse))
	}

	buckets := make([]domain.BucketedReading, 0, len(groups))
	for _, g := range groups {
		buckets = append(buckets, domain.BucketedReading{
			Timestamp:       g.start,
			Systolic:        roundMean(g.systolic),
			Diastolic:       roundMean(g.diastolic),
			Pulse:           roundMean(g.pulse),
			SystolicStdDev:  StdDev(g.systolic),
			DiastolicStdDev: StdDev(g.diastolic),
			PulseStdDev:     StdDev(g.pulse),
		})
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Timestamp.Before(buckets[j].Timestamp)
	})
	return buckets
}

// floorToBucket 分钟向下取整到最近的 5 分钟，秒和纳秒清零
func floorToBucket(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute()/5*5, 0, 0, t.Location())
}

func roundMean(values []float64) int {
	return int(math.Round(Mean(values)))
}

// Mean 算术平均值；空切片返回 0
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev 总体标准差，四舍五入到 1 位小数；单元素组恒为 0.0
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Round(math.Sqrt(sumSq/float64(len(values)))*10) / 10
}
