package domain

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSelectVariantPartitionCoverage(t *testing.T) {
	variants := []Variant{
		{Name: "Variant A", Price: dec("20"), TrafficPercent: 33},
		{Name: "Variant B", Price: dec("15"), TrafficPercent: 33},
	}

	for bucket := 0; bucket < BucketSpace; bucket++ {
		chosen := SelectVariant(bucket, 34, dec("25"), variants)
		require.NotEmpty(t, chosen.Name, "bucket %d", bucket)
	}
}

func TestSelectVariantContiguousRanges(t *testing.T) {
	// 原价条目在前，其余按流量升序：base(34) | A(33) | B(33)
	variants := []Variant{
		{Name: "Variant A", Price: dec("20"), TrafficPercent: 33},
		{Name: "Variant B", Price: dec("15"), TrafficPercent: 33},
	}

	for bucket := 0; bucket < BucketSpace; bucket++ {
		chosen := SelectVariant(bucket, 34, dec("25"), variants)
		switch {
		case bucket < 34:
			assert.True(t, chosen.IsBase, "bucket %d", bucket)
		case bucket < 67:
			assert.Equal(t, "Variant A", chosen.Name, "bucket %d", bucket)
		default:
			assert.Equal(t, "Variant B", chosen.Name, "bucket %d", bucket)
		}
	}
}

func TestSelectVariantScenarioFiftyTwentyFiveTwentyFive(t *testing.T) {
	// base=50%，A $20 25%，B $15 25%，原价 $25
	variants := []Variant{
		{Name: "Variant A", Price: dec("20"), TrafficPercent: 25},
		{Name: "Variant B", Price: dec("15"), TrafficPercent: 25},
	}

	base := SelectVariant(10, 50, dec("25"), variants)
	assert.True(t, base.IsBase)
	assert.True(t, base.Price.Equal(dec("25")))

	a := SelectVariant(60, 50, dec("25"), variants)
	assert.Equal(t, "Variant A", a.Name)
	assert.True(t, a.Price.Equal(dec("20")))

	b := SelectVariant(90, 50, dec("25"), variants)
	assert.Equal(t, "Variant B", b.Name)
	assert.True(t, b.Price.Equal(dec("15")))
}

func TestSelectVariantBaseFallbackEmptyVariants(t *testing.T) {
	for bucket := 0; bucket < BucketSpace; bucket++ {
		chosen := SelectVariant(bucket, 100, dec("9.99"), nil)
		assert.True(t, chosen.IsBase, "bucket %d", bucket)
		assert.True(t, chosen.Price.Equal(dec("9.99")), "bucket %d", bucket)
	}
}

func TestSelectVariantMisconfiguredSumFallsBackToBase(t *testing.T) {
	// 占比之和只有 60，未覆盖的桶值回落到原价
	variants := []Variant{
		{Name: "Variant A", Price: dec("20"), TrafficPercent: 30},
	}

	chosen := SelectVariant(95, 30, dec("25"), variants)
	assert.True(t, chosen.IsBase)
	assert.True(t, chosen.Price.Equal(dec("25")))
}

func TestSelectVariantExplicitBaseEntry(t *testing.T) {
	variants := []Variant{
		{Name: "Keep Original", Price: dec("30"), TrafficPercent: 50, IsBase: true},
		{Name: "Variant A", Price: dec("20"), TrafficPercent: 50},
	}

	chosen := SelectVariant(0, 50, dec("25"), variants)
	assert.Equal(t, "Keep Original", chosen.Name)
	// 显式原价条目使用自身价格，而不是调用方传入的原价
	assert.True(t, chosen.Price.Equal(dec("30")))
}

func TestSelectVariantStableOrderingForEqualTraffic(t *testing.T) {
	variants := []Variant{
		{Name: "First", Price: dec("20"), TrafficPercent: 25},
		{Name: "Second", Price: dec("15"), TrafficPercent: 25},
	}

	// 相同占比按输入顺序排列，重复调用结果一致
	first := SelectVariant(60, 50, dec("25"), variants)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first.Name, SelectVariant(60, 50, dec("25"), variants).Name)
	}
	assert.Equal(t, "First", first.Name)
}

func TestSelectVariantDistributionTolerance(t *testing.T) {
	// 10000 个会话按 34/33/33 分流，观测占比与配置占比偏差应在 2 个百分点内
	variants := []Variant{
		{Name: "Variant A", Price: dec("20"), TrafficPercent: 33},
		{Name: "Variant B", Price: dec("15"), TrafficPercent: 33},
	}

	counts := make(map[string]int)
	const sessions = 10000
	for i := 0; i < sessions; i++ {
		bucket := Bucket("tenant-a", fmt.Sprintf("sess-%d", i), "")
		chosen := SelectVariant(bucket, 34, dec("25"), variants)
		counts[chosen.Name]++
	}

	expected := map[string]float64{
		BaseVariantName: 34,
		"Variant A":     33,
		"Variant B":     33,
	}
	for name, want := range expected {
		got := float64(counts[name]) / sessions * 100
		assert.InDelta(t, want, got, 2.0, "share of %s", name)
	}
}
