package stats

import (
	"testing"
	"time"

	"wisefido-bp/internal/aggregate"
	"wisefido-bp/internal/domain"

	"github.com/stretchr/testify/require"
)

func bucket(ts time.Time, sys, dia, pulse int) domain.BucketedReading {
	return domain.BucketedReading{Timestamp: ts, Systolic: sys, Diastolic: dia, Pulse: pulse}
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.Local)
}

func TestCompute_ReferenceScenario(t *testing.T) {
	// 2024-01-01 08:00,150,95,75 / 08:02,150,95,75 / 20:00,110,70,65
	// 默认阈值 140/90：两个桶，高压异常 1 次 (50%)，低压异常 1 次 (50%)
	readings := []domain.Reading{
		{Timestamp: at(8, 0), Systolic: 150, Diastolic: 95, Pulse: 75},
		{Timestamp: at(8, 2), Systolic: 150, Diastolic: 95, Pulse: 75},
		{Timestamp: at(20, 0), Systolic: 110, Diastolic: 70, Pulse: 65},
	}
	buckets := aggregate.BucketReadings(readings)
	require.Len(t, buckets, 2)

	b := Compute(buckets, domain.DefaultThresholds())

	require.Equal(t, 1, b.Abnormal.HighAbnormal)
	require.Equal(t, 50.0, b.Abnormal.HighPercentage)
	require.Equal(t, 1, b.Abnormal.LowAbnormal)
	require.Equal(t, 50.0, b.Abnormal.LowPercentage)

	require.Equal(t, 130.0, b.Systolic.Average)
	require.Equal(t, 150, b.Systolic.Max)
	require.Equal(t, 110, b.Systolic.Min)

	// 日间 150/95，夜间 110/70：昼夜差远超 10%，判为杓型
	require.Equal(t, 150.0, b.DayNight.DayHighAvg)
	require.Equal(t, 110.0, b.DayNight.NightHighAvg)
	require.True(t, b.DayNight.IsDipper)
}

func TestChannelStats_AverageOneDecimal(t *testing.T) {
	buckets := []domain.BucketedReading{
		bucket(at(8, 0), 120, 80, 70),
		bucket(at(9, 0), 121, 81, 71),
		bucket(at(10, 0), 123, 83, 73),
	}
	b := Compute(buckets, domain.DefaultThresholds())
	require.Equal(t, 121.3, b.Systolic.Average) // 364/3 = 121.33…
	require.Equal(t, 81.3, b.Diastolic.Average)
}

func TestCategories_ArePartition(t *testing.T) {
	buckets := []domain.BucketedReading{
		bucket(at(8, 0), 110, 70, 70),  // normal
		bucket(at(8, 5), 125, 75, 70),  // elevated
		bucket(at(8, 10), 135, 85, 70), // stage1
		bucket(at(8, 15), 145, 75, 70), // stage2（高压 140-159）
		bucket(at(8, 20), 170, 110, 70), // stage3
		bucket(at(8, 25), 119, 92, 70), // stage2（低压 90-99）
		bucket(at(8, 30), 118, 84, 70), // stage1（低压 80-89）
	}
	b := Compute(buckets, domain.DefaultThresholds())

	c := b.Categories
	require.Equal(t, len(buckets), c.Total())
	require.Equal(t, 1, c.Normal)
	require.Equal(t, 1, c.Elevated)
	require.Equal(t, 2, c.Stage1)
	require.Equal(t, 2, c.Stage2)
	require.Equal(t, 1, c.Stage3)
}

func TestCategories_PriorityOrderStage1BeforeStage2(t *testing.T) {
	// 135/95 同时满足 stage1 的高压条件和 stage2 的低压条件，
	// 按固定求值顺序判为 stage1
	b := Compute([]domain.BucketedReading{bucket(at(8, 0), 135, 95, 70)}, domain.DefaultThresholds())
	require.Equal(t, 1, b.Categories.Stage1)
	require.Equal(t, 0, b.Categories.Stage2)
}

func TestDayNight_PartitionTotalAndDisjoint(t *testing.T) {
	buckets := []domain.BucketedReading{
		bucket(at(5, 59), 120, 80, 70),  // night
		bucket(at(6, 0), 120, 80, 70),   // day（边界 6 点属日间）
		bucket(at(17, 59), 120, 80, 70), // day
		bucket(at(18, 0), 120, 80, 70),  // night（边界 18 点属夜间）
		bucket(at(23, 30), 120, 80, 70), // night
	}
	day, night := 0, 0
	for _, bk := range buckets {
		if isDay(bk) {
			day++
		} else {
			night++
		}
	}
	require.Equal(t, 2, day)
	require.Equal(t, 3, night)
	require.Equal(t, len(buckets), day+night)
}

func TestDayNight_DipperRequiresBothChannels(t *testing.T) {
	// 高压昼夜差 ≥10% 但低压 <10% → 非杓型
	buckets := []domain.BucketedReading{
		bucket(at(10, 0), 132, 82, 70),
		bucket(at(22, 0), 110, 80, 70),
	}
	b := Compute(buckets, domain.DefaultThresholds())
	require.Equal(t, 20.0, b.DayNight.HighDiff)
	require.Equal(t, 2.5, b.DayNight.LowDiff)
	require.False(t, b.DayNight.IsDipper)
}

func TestDayNight_EmptyPartitionIsNonDipper(t *testing.T) {
	// 只有日间数据：无法比较，按非杓型处理，差值为 0
	buckets := []domain.BucketedReading{
		bucket(at(8, 0), 150, 95, 75),
		bucket(at(12, 0), 140, 90, 70),
	}
	b := Compute(buckets, domain.DefaultThresholds())
	require.False(t, b.DayNight.IsDipper)
	require.Equal(t, 0.0, b.DayNight.HighDiff)
	require.Equal(t, 0.0, b.DayNight.NightHighAvg)
}

func TestLoad_TotalFormula(t *testing.T) {
	buckets := []domain.BucketedReading{
		bucket(at(8, 0), 150, 95, 75),  // 高低压都超限
		bucket(at(12, 0), 150, 80, 70), // 只有高压超限
		bucket(at(20, 0), 110, 70, 65), // 都不超
		bucket(at(22, 0), 120, 95, 70), // 只有低压超限
	}
	b := Compute(buckets, domain.DefaultThresholds())

	require.Equal(t, 50.0, b.Load.HighLoad) // 2/4
	require.Equal(t, 50.0, b.Load.LowLoad)  // 2/4
	require.Equal(t, 50.0, b.Load.TotalLoad) // (2+2)/(2×4)
	require.Equal(t, 100.0, b.Load.DayHighLoad)
	require.Equal(t, 0.0, b.Load.NightHighLoad)
	require.Equal(t, 50.0, b.Load.DayLowLoad)
	require.Equal(t, 50.0, b.Load.NightLowLoad)
}

func TestCompute_EmptySeriesReportsZero(t *testing.T) {
	// 空序列的百分比按 0 报告（确定性约定，管道层本身不会对空序列求统计）
	b := Compute(nil, domain.DefaultThresholds())
	require.Equal(t, 0, b.Abnormal.Total)
	require.Equal(t, 0.0, b.Abnormal.HighPercentage)
	require.Equal(t, 0.0, b.Load.TotalLoad)
	require.False(t, b.DayNight.IsDipper)
}

func TestCompute_ThresholdChangeOnlyAffectsThresholdOutputs(t *testing.T) {
	buckets := []domain.BucketedReading{
		bucket(at(8, 0), 150, 95, 75),
		bucket(at(12, 0), 135, 85, 70),
		bucket(at(20, 0), 110, 70, 65),
	}
	before := Compute(buckets, domain.ThresholdSettings{SystolicLimit: 140, DiastolicLimit: 90})
	after := Compute(buckets, domain.ThresholdSettings{SystolicLimit: 130, DiastolicLimit: 80})

	// 不依赖阈值的输出不变
	require.Equal(t, before.Systolic, after.Systolic)
	require.Equal(t, before.Diastolic, after.Diastolic)
	require.Equal(t, before.Pulse, after.Pulse)
	require.Equal(t, before.SystolicStdDev, after.SystolicStdDev)
	require.Equal(t, before.DayNight, after.DayNight)
	require.Equal(t, before.Categories, after.Categories)

	// 阈值相关输出随之变化
	require.Equal(t, 1, before.Abnormal.HighAbnormal)
	require.Equal(t, 2, after.Abnormal.HighAbnormal)
	require.NotEqual(t, before.Load, after.Load)
}

func TestSeriesStdDev_OverBucketMeans(t *testing.T) {
	// 序列标准差基于各桶均值，而不是桶内标准差的组合
	buckets := []domain.BucketedReading{
		{Timestamp: at(8, 0), Systolic: 120, Diastolic: 80, Pulse: 70, SystolicStdDev: 9.9},
		{Timestamp: at(9, 0), Systolic: 130, Diastolic: 80, Pulse: 70, SystolicStdDev: 9.9},
	}
	b := Compute(buckets, domain.DefaultThresholds())
	require.Equal(t, 5.0, b.SystolicStdDev)
	require.Equal(t, 0.0, b.DiastolicStdDev)
}
