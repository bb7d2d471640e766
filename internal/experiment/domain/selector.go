package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BaseVariantName 合成原价条目的名称
const BaseVariantName = "Original Price"

// orderedEntries 构造固定顺序的变体表：原价条目在前，
// 其余变体按流量占比升序排列（相同占比保持输入顺序）。
// 顺序固定保证了累计分桶区间在每次调用中一致，
// 这是哈希桶值能稳定映射到同一变体的前提。
func orderedEntries(baseTraffic int, basePrice decimal.Decimal, variants []Variant) []Variant {
	var base *Variant
	rest := make([]Variant, 0, len(variants))
	for i := range variants {
		if variants[i].IsBase && base == nil {
			base = &variants[i]
			continue
		}
		rest = append(rest, variants[i])
	}

	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].TrafficPercent < rest[j].TrafficPercent
	})

	entries := make([]Variant, 0, len(rest)+1)
	if base != nil {
		entries = append(entries, *base)
	} else {
		entries = append(entries, Variant{
			Name:           BaseVariantName,
			Price:          basePrice,
			TrafficPercent: baseTraffic,
			IsBase:         true,
		})
	}
	return append(entries, rest...)
}

// SelectVariant 根据桶值从流量表中选出变体。
// 对固定的 (variants, baseTraffic) 输入，SelectVariant 是桶值的全函数：
// 它把 [0,100) 划分为按流量占比定宽的连续区间。
// 流量占比之和不足 100 时（配置异常），未覆盖的桶值回落到原价条目。
func SelectVariant(bucket int, baseTraffic int, basePrice decimal.Decimal, variants []Variant) Variant {
	entries := orderedEntries(baseTraffic, basePrice, variants)

	cumulative := 0
	for _, e := range entries {
		cumulative += e.TrafficPercent
		if bucket < cumulative {
			return e
		}
	}

	// 配置异常兜底：永远返回原价条目，不报错
	return entries[0]
}
