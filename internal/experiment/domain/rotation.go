package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultRotationWindowMinutes 默认轮换窗口长度（分钟）。
// 以 5 分钟窗口为例：三个条目的实验在每个 15 分钟周期内
// 0-4 分钟展示原价，5-9 分钟展示第一个变体，10-14 分钟展示第二个。
const DefaultRotationWindowMinutes = 5

// LivePrice 轮换窗口内写入平台的唯一价格
type LivePrice struct {
	Price  decimal.Decimal
	Label  string
	IsBase bool
}

// ChooseLiveVariant 确定当前时间窗口内应写入电商平台的价格。
// 与按访客分桶不同，平台同一时刻只存储一个价格，
// 这里用墙钟分钟数在与 SelectVariant 相同的有序变体表上取槽位：
//
//	slot = (now.Minute() / windowMinutes) % len(entries)
//
// 该函数是 (实验配置, now) 的纯函数，同一窗口内重复调用结果一致。
// 原价始终取自 ProductAssociation，不使用任何变体的价格。
func ChooseLiveVariant(exp *Experiment, assoc ProductAssociation, now time.Time, windowMinutes int) LivePrice {
	if windowMinutes <= 0 {
		windowMinutes = DefaultRotationWindowMinutes
	}

	variants := exp.VariantsForProduct(assoc.ProductID)
	entries := orderedEntries(exp.BaseTrafficPercent, assoc.BasePrice, variants)

	slot := (now.Minute() / windowMinutes) % len(entries)
	chosen := entries[slot]

	return LivePrice{
		Price:  chosen.Price,
		Label:  chosen.Name,
		IsBase: chosen.IsBase,
	}
}
