package stats

// 建议生成规则：每条规则独立求值，命中即追加；输出顺序固定为
// 血压水平 → 波动 → 昼夜节律 → 负荷 → 脉搏
const (
	adviceNormal     = "您的血压处于正常水平，请继续保持健康的生活方式。"
	adviceElevated   = "您的血压处于正常高值，建议：1) 控制饮食，减少盐分摄入；2) 增加运动量；3) 保持健康体重；4) 定期监测血压。"
	adviceIsoLow     = "您的低压偏高，建议：1) 控制饮食，减少盐分摄入；2) 增加运动量；3) 保持健康体重；4) 定期监测血压。"
	adviceStage1     = "您处于轻度高血压状态，建议：1) 立即就医咨询；2) 遵医嘱服用降压药物；3) 严格控制饮食和运动；4) 每日监测血压。"
	adviceStage2     = "您处于中度高血压状态，建议：1) 立即就医；2) 严格遵医嘱服药；3) 改变生活方式；4) 密切监测血压变化。"
	adviceStage3     = "您处于重度高血压状态，建议：1) 立即就医；2) 可能需要住院治疗；3) 严格遵医嘱服药；4) 每日多次监测血压。"
	adviceVariable   = "您的血压波动较大，建议：1) 保持规律作息；2) 避免情绪激动；3) 控制饮食规律；4) 增加测量频率。"
	adviceNonDipper  = "您的血压昼夜节律异常（非杓型），建议：1) 改善睡眠质量；2) 避免熬夜；3) 控制夜间活动；4) 咨询医生是否需要调整用药时间。"
	adviceHighLoad   = "您的血压负荷较高，建议：1) 增加降压药物剂量或种类；2) 加强生活方式干预；3) 定期复查；4) 避免剧烈运动。"
	adviceFastPulse  = "您的心率偏快，建议：1) 控制情绪；2) 避免剧烈运动；3) 咨询医生是否需要使用控制心率的药物。"
	adviceSlowPulse  = "您的心率偏慢，建议：1) 适当增加运动量；2) 咨询医生是否需要调整降压药物。"
)

// 波动和负荷规则的触发阈值
const (
	systolicStdDevThreshold  = 15
	diastolicStdDevThreshold = 10
	loadThreshold            = 25
	fastPulseThreshold       = 100
	slowPulseThreshold       = 60
)

// Recommendations 由统计报表生成有序的临床建议列表
func Recommendations(b Bundle) []string {
	var recs []string

	// 1. 血压水平（六档互斥，按声明顺序首个命中）
	recs = append(recs, levelAdvice(b.Systolic.Average, b.Diastolic.Average))

	// 2. 血压波动
	if b.SystolicStdDev > systolicStdDevThreshold || b.DiastolicStdDev > diastolicStdDevThreshold {
		recs = append(recs, adviceVariable)
	}

	// 3. 昼夜节律
	if !b.DayNight.IsDipper {
		recs = append(recs, adviceNonDipper)
	}

	// 4. 血压负荷
	if b.Load.HighLoad > loadThreshold || b.Load.LowLoad > loadThreshold {
		recs = append(recs, adviceHighLoad)
	}

	// 5. 脉搏（快慢互斥）
	if b.Pulse.Average > fastPulseThreshold {
		recs = append(recs, adviceFastPulse)
	} else if b.Pulse.Average < slowPulseThreshold {
		recs = append(recs, adviceSlowPulse)
	}

	return recs
}

func levelAdvice(avgHigh, avgLow float64) string {
	switch {
	case avgHigh < 120 && avgLow < 80:
		return adviceNormal
	case avgHigh >= 120 && avgHigh <= 129 && avgLow < 80:
		return adviceElevated
	case avgHigh < 120 && avgLow >= 80 && avgLow <= 89:
		return adviceIsoLow
	case (avgHigh >= 130 && avgHigh <= 139) || (avgLow >= 80 && avgLow <= 89):
		return adviceStage1
	case (avgHigh >= 140 && avgHigh <= 159) || (avgLow >= 90 && avgLow <= 99):
		return adviceStage2
	default:
		return adviceStage3
	}
}
