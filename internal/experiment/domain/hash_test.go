package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketDeterminism(t *testing.T) {
	first := Bucket("tenant-a", "sess-123", "cust-9")
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Bucket("tenant-a", "sess-123", "cust-9"))
	}
}

func TestBucketRange(t *testing.T) {
	for i := 0; i < 10000; i++ {
		b := Bucket("tenant-a", fmt.Sprintf("sess-%d", i), "")
		assert.GreaterOrEqual(t, b, 0)
		assert.Less(t, b, BucketSpace)
	}
}

func TestBucketSensitiveToInputs(t *testing.T) {
	// 不同会话应当（几乎总是）落入不同的桶；这里只要求不全相同
	seen := make(map[int]bool)
	for i := 0; i < 100; i++ {
		seen[Bucket("tenant-a", fmt.Sprintf("sess-%d", i), "")] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestBucketForExperimentIndependentAcrossExperiments(t *testing.T) {
	// 同一访客在不同实验中的分桶应当相互独立：
	// 50 个会话在两个实验中全部同桶的概率可以忽略
	same := 0
	for i := 0; i < 50; i++ {
		session := fmt.Sprintf("sess-%d", i)
		a := BucketForExperiment("tenant-a", session, "", 1)
		b := BucketForExperiment("tenant-a", session, "", 2)
		if a == b {
			same++
		}
	}
	assert.Less(t, same, 50)
}

func TestBucketForExperimentDeterminism(t *testing.T) {
	first := BucketForExperiment("tenant-a", "sess-42", "cust-1", 7)
	assert.Equal(t, first, BucketForExperiment("tenant-a", "sess-42", "cust-1", 7))
}
