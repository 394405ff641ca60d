package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"wisefido-bp/internal/domain"
)

// ErrMissingColumns 表头缺少必要列时的致命错误（整个文件不解析）
var ErrMissingColumns = errors.New("CSV文件格式错误：缺少必要的列（日期、高压、低压、脉搏）")

// 各逻辑列的表头同义词（大小写不敏感的子串匹配，中英文导出都能识别）
var (
	dateSynonyms      = []string{"日期", "date", "时间", "time", "测量时间", "测量日期"}
	systolicSynonyms  = []string{"高压", "high", "收缩压", "systolic", "收缩"}
	diastolicSynonyms = []string{"低压", "low", "舒张压", "diastolic", "舒张"}
	pulseSynonyms     = []string{"脉搏", "pulse", "心率", "heart rate", "心跳"}
)

// 支持的日期格式，按顺序尝试（年-月-日 或 年/月/日，秒和毫秒可选，毫秒分隔符 . 或 ,）
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})\s+(\d{1,2}):(\d{1,2}):(\d{1,2})$`),
	regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})\s+(\d{1,2}):(\d{1,2}):(\d{1,2})$`),
	regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})\s+(\d{1,2}):(\d{1,2})$`),
	regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})\s+(\d{1,2}):(\d{1,2})$`),
	regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})\s+(\d{1,2}):(\d{1,2}):(\d{1,2})\.(\d{1,3})$`),
	regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})\s+(\d{1,2}):(\d{1,2}):(\d{1,2})\.(\d{1,3})$`),
	regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})\s+(\d{1,2}):(\d{1,2}):(\d{1,2}),(\d{1,3})$`),
	regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})\s+(\d{1,2}):(\d{1,2}):(\d{1,2}),(\d{1,3})$`),
}

// Result 解析结果：有效测量 + 每行错误（错误不阻断其余行）
type Result struct {
	Readings []domain.Reading
	Errors   []domain.LineError
}

// columns 四个逻辑列在表头中的下标
type columns struct {
	date, systolic, diastolic, pulse int
}

// ParseCSV 解析血压监测仪导出的 CSV/TSV 文本
// 表头缺列返回 ErrMissingColumns；数据行错误记录在 Result.Errors 中
func ParseCSV(raw string) (*Result, error) {
	lines := strings.Split(raw, "\n")
	if len(lines) == 0 {
		return nil, ErrMissingColumns
	}

	cols, err := resolveColumns(splitLine(lines[0]))
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i := 1; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}

		reading, perr := parseLine(splitLine(line), cols)
		if perr != nil {
			res.Errors = append(res.Errors, domain.LineError{
				Line:    i + 1,
				Content: line,
				Message: perr.Error(),
			})
			continue
		}
		res.Readings = append(res.Readings, reading)
	}
	return res, nil
}

// resolveColumns 在表头中按同义词顺序查找四个逻辑列
func resolveColumns(headers []string) (columns, error) {
	cols := columns{
		date:      findColumn(headers, dateSynonyms),
		systolic:  findColumn(headers, systolicSynonyms),
		diastolic: findColumn(headers, diastolicSynonyms),
		pulse:     findColumn(headers, pulseSynonyms),
	}
	if cols.date == -1 || cols.systolic == -1 || cols.diastolic == -1 || cols.pulse == -1 {
		return cols, ErrMissingColumns
	}
	return cols, nil
}

func findColumn(headers []string, synonyms []string) int {
	for _, name := range synonyms {
		for i, h := range headers {
			if strings.Contains(strings.ToLower(h), strings.ToLower(name)) {
				return i
			}
		}
	}
	return -1
}

// splitLine 引号感知的分列：逗号或制表符在引号范围外才是分隔符
// 单双引号共用一个 inQuotes 开关（与监测仪导出文件的宽松格式保持一致）
// 每个字段去掉首尾空白和包裹引号
func splitLine(line string) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			inQuotes = !inQuotes
			current.WriteRune(ch)
		case (ch == ',' || ch == '\t') && !inQuotes:
			fields = append(fields, cleanField(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	fields = append(fields, cleanField(current.String()))
	return fields
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, `"'`)
	s = strings.TrimRight(s, `"'`)
	return strings.TrimSpace(s)
}

// parseLine 解码一行数据：日期 + 三个整数通道 + 范围校验
func parseLine(fields []string, cols columns) (domain.Reading, error) {
	max := cols.date
	for _, c := range []int{cols.systolic, cols.diastolic, cols.pulse} {
		if c > max {
			max = c
		}
	}
	if len(fields) <= max {
		return domain.Reading{}, errors.New("字段数量不足")
	}

	ts, err := parseDate(fields[cols.date])
	if err != nil {
		return domain.Reading{}, err
	}

	systolic, err := strconv.Atoi(fields[cols.systolic])
	if err != nil {
		return domain.Reading{}, errors.New("数值格式错误")
	}
	diastolic, err := strconv.Atoi(fields[cols.diastolic])
	if err != nil {
		return domain.Reading{}, errors.New("数值格式错误")
	}
	pulse, err := strconv.Atoi(fields[cols.pulse])
	if err != nil {
		return domain.Reading{}, errors.New("数值格式错误")
	}

	if systolic < domain.SystolicMin || systolic > domain.SystolicMax {
		return domain.Reading{}, errors.New("高压数值超出正常范围")
	}
	if diastolic < domain.DiastolicMin || diastolic > domain.DiastolicMax {
		return domain.Reading{}, errors.New("低压数值超出正常范围")
	}
	if pulse < domain.PulseMin || pulse > domain.PulseMax {
		return domain.Reading{}, errors.New("脉搏数值超出正常范围")
	}

	return domain.Reading{
		Timestamp: ts,
		Systolic:  systolic,
		Diastolic: diastolic,
		Pulse:     pulse,
	}, nil
}

// parseDate 按固定格式列表逐个尝试；毫秒捕获后丢弃
func parseDate(s string) (time.Time, error) {
	s = cleanField(s)
	for _, re := range datePatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		year := atoi(m[1])
		month := atoi(m[2])
		day := atoi(m[3])
		hour := atoi(m[4])
		minute := atoi(m[5])
		second := 0
		if len(m) > 6 {
			second = atoi(m[6])
		}
		// time.Date 会归一化越界的月/日/时分秒，与原始数据源的宽松行为一致
		return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local), nil
	}
	return time.Time{}, fmt.Errorf("无法解析日期格式: %s", s)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
