package rag

import (
	"math"
	"sort"
)

// cosineEpsilon 分母中的平滑项，零向量得分为 0 而不是 NaN
const cosineEpsilon = 1e-10

// CosineSimilarity 计算 dot(a,b) / (‖a‖·‖b‖ + 1e-10)。长度不同返回 0。
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	return dotProduct / (math.Sqrt(normA)*math.Sqrt(normB) + cosineEpsilon)
}

// scoredPosition 候选文档位置及其得分
type scoredPosition struct {
	position int
	score    float64
}

// rankTopK 按得分降序排序，同分按位置升序，截取前 k 个
func rankTopK(candidates []scoredPosition, k int) []scoredPosition {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].position < candidates[j].position
	})
	if k < len(candidates) {
		candidates = candidates[:k]
	}
	return candidates
}

// RoundScore 保留 3 位小数
func RoundScore(s float64) float64 {
	return math.Round(s*1000) / 1000
}
