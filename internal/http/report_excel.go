package httpapi

import (
	"bytes"
	"fmt"

	"wisefido-bp/internal/service"

	"github.com/xuri/excelize/v2"
)

// 报表工作表名
const (
	sheetStats           = "统计概览"
	sheetRecommendations = "分析建议"
	sheetData            = "测量数据"
)

// DataSheetHeader 测量数据表头
var DataSheetHeader = []string{
	"测量时间",
	"高压 (mmHg)",
	"低压 (mmHg)",
	"脉搏 (次/分)",
	"高压标准差",
	"低压标准差",
	"脉搏标准差",
}

// GenerateAnalysisReport 把分析快照渲染为 Excel 工作簿
// 三个工作表：统计概览、分析建议、测量数据（超阈值单元格标红）
func GenerateAnalysisReport(snap *service.Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	headerStyle, err := newHeaderStyle(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := writeStatsSheet(f, snap, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeRecommendationsSheet(f, snap, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeDataSheet(f, snap, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	f.DeleteSheet("Sheet1")
	if index, err := f.GetSheetIndex(sheetStats); err == nil {
		f.SetActiveSheet(index)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func newHeaderStyle(f *excelize.File) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create header style: %w", err)
	}
	return style, nil
}

// writeStatsSheet 统计概览：两列 指标/数值
func writeStatsSheet(f *excelize.File, snap *service.Snapshot, headerStyle int) error {
	if _, err := f.NewSheet(sheetStats); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	_ = f.SetColWidth(sheetStats, "A", "A", 28)
	_ = f.SetColWidth(sheetStats, "B", "B", 18)

	for col, title := range []string{"指标", "数值"} {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetStats, cell, title); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		_ = f.SetCellStyle(sheetStats, cell, cell, headerStyle)
	}

	b := snap.Stats
	rows := []struct {
		label string
		value any
	}{
		{"原始数据点数", snap.OriginalCount},
		{"处理后数据点数", snap.BucketCount},
		{"解析错误行数", len(snap.ParseErrors)},
		{"高压上限 (mmHg)", snap.Settings.SystolicLimit},
		{"低压上限 (mmHg)", snap.Settings.DiastolicLimit},
		{"高压平均值 (mmHg)", b.Systolic.Average},
		{"高压最高值 (mmHg)", b.Systolic.Max},
		{"高压最低值 (mmHg)", b.Systolic.Min},
		{"低压平均值 (mmHg)", b.Diastolic.Average},
		{"低压最高值 (mmHg)", b.Diastolic.Max},
		{"低压最低值 (mmHg)", b.Diastolic.Min},
		{"脉搏平均值 (次/分)", b.Pulse.Average},
		{"脉搏最高值 (次/分)", b.Pulse.Max},
		{"脉搏最低值 (次/分)", b.Pulse.Min},
		{"高压标准差", b.SystolicStdDev},
		{"低压标准差", b.DiastolicStdDev},
		{"脉搏标准差", b.PulseStdDev},
		{"高压异常次数", b.Abnormal.HighAbnormal},
		{"高压异常占比 (%)", b.Abnormal.HighPercentage},
		{"低压异常次数", b.Abnormal.LowAbnormal},
		{"低压异常占比 (%)", b.Abnormal.LowPercentage},
		{"日间高压均值 (mmHg)", b.DayNight.DayHighAvg},
		{"夜间高压均值 (mmHg)", b.DayNight.NightHighAvg},
		{"日间低压均值 (mmHg)", b.DayNight.DayLowAvg},
		{"夜间低压均值 (mmHg)", b.DayNight.NightLowAvg},
		{"高压昼夜差 (%)", b.DayNight.HighDiff},
		{"低压昼夜差 (%)", b.DayNight.LowDiff},
		{"血压类型", dipperLabel(b.DayNight.IsDipper)},
		{"正常血压 (<120/80)", b.Categories.Normal},
		{"正常高值 (120-129/<80)", b.Categories.Elevated},
		{"轻度高血压 (130-139/80-89)", b.Categories.Stage1},
		{"中度高血压 (140-159/90-99)", b.Categories.Stage2},
		{"重度高血压 (≥160/≥100)", b.Categories.Stage3},
		{"总负荷率 (%)", b.Load.TotalLoad},
		{"高压负荷率 (%)", b.Load.HighLoad},
		{"低压负荷率 (%)", b.Load.LowLoad},
		{"日间高压负荷 (%)", b.Load.DayHighLoad},
		{"夜间高压负荷 (%)", b.Load.NightHighLoad},
		{"日间低压负荷 (%)", b.Load.DayLowLoad},
		{"夜间低压负荷 (%)", b.Load.NightLowLoad},
	}

	for i, row := range rows {
		labelCell, _ := excelize.CoordinatesToCellName(1, i+2)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+2)
		if err := f.SetCellValue(sheetStats, labelCell, row.label); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", labelCell, err)
		}
		if err := f.SetCellValue(sheetStats, valueCell, row.value); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", valueCell, err)
		}
	}
	return nil
}

func writeRecommendationsSheet(f *excelize.File, snap *service.Snapshot, headerStyle int) error {
	if _, err := f.NewSheet(sheetRecommendations); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	_ = f.SetColWidth(sheetRecommendations, "A", "A", 120)

	if err := f.SetCellValue(sheetRecommendations, "A1", "血压分析建议"); err != nil {
		return fmt.Errorf("failed to set header cell: %w", err)
	}
	_ = f.SetCellStyle(sheetRecommendations, "A1", "A1", headerStyle)

	for i, rec := range snap.Recommendations {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetCellValue(sheetRecommendations, cell, rec); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}

// writeDataSheet 测量数据表：每桶一行，超阈值的高压/低压单元格标红
func writeDataSheet(f *excelize.File, snap *service.Snapshot, headerStyle int) error {
	if _, err := f.NewSheet(sheetData); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	columnWidths := []float64{22, 14, 14, 14, 12, 12, 12}
	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheetData, col, col, width)
	}

	for col, title := range DataSheetHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetData, cell, title); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		_ = f.SetCellStyle(sheetData, cell, cell, headerStyle)
	}

	abnormalStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#CC0000", Bold: true},
	})
	if err != nil {
		return fmt.Errorf("failed to create abnormal style: %w", err)
	}

	for i, bucket := range snap.Buckets {
		row := i + 2
		values := []any{
			bucket.Timestamp.Format("2006/01/02 15:04"),
			bucket.Systolic,
			bucket.Diastolic,
			bucket.Pulse,
			bucket.SystolicStdDev,
			bucket.DiastolicStdDev,
			bucket.PulseStdDev,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetData, cell, v); err != nil {
				return fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
		if bucket.Systolic > snap.Settings.SystolicLimit {
			cell, _ := excelize.CoordinatesToCellName(2, row)
			_ = f.SetCellStyle(sheetData, cell, cell, abnormalStyle)
		}
		if bucket.Diastolic > snap.Settings.DiastolicLimit {
			cell, _ := excelize.CoordinatesToCellName(3, row)
			_ = f.SetCellStyle(sheetData, cell, cell, abnormalStyle)
		}
	}
	return nil
}

func dipperLabel(isDipper bool) string {
	if isDipper {
		return "杓型"
	}
	return "非杓型"
}
