package domain

import (
	"hash/fnv"
	"strconv"
)

// BucketSpace 分桶空间大小，桶值取值范围 [0, BucketSpace)
const BucketSpace = 100

// Bucket 将访客身份映射为 [0,100) 内的稳定整数。
// 对固定的 (tenant, sessionID, customerID)，返回值在会话生命周期内不变。
func Bucket(tenant, sessionID, customerID string) int {
	return bucketOf(tenant + "|" + sessionID + "|" + customerID)
}

// BucketForExperiment 在哈希输入中混入实验 ID，
// 使同一访客在并发实验之间得到相互独立的分桶。
func BucketForExperiment(tenant, sessionID, customerID string, experimentID uint) int {
	return bucketOf(tenant + "|" + sessionID + "|" + customerID + "|" + strconv.FormatUint(uint64(experimentID), 10))
}

func bucketOf(input string) int {
	h := fnv.New32a()
	// fnv.Write 不会返回错误
	_, _ = h.Write([]byte(input))
	return int(h.Sum32() % BucketSpace)
}
