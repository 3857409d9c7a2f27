package crop

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// CentroidClassifier 라벨별 평균 조건과의 표준화 거리가 가장 가까운 작물
// 파일 형식: label,N,P,K,temperature,humidity,ph,rainfall
type CentroidClassifier struct {
	centroids map[int][]float64
	scale     []float64
}

// LoadCentroids CSV 파일에서 읽기
func LoadCentroids(path string) (*CentroidClassifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open centroids: %w", err)
	}
	defer f.Close()

	return ReadCentroids(f)
}

// ReadCentroids 헤더 + 라벨별 한 행
func ReadCentroids(r io.Reader) (*CentroidClassifier, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read centroids: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("read centroids: no rows")
	}

	width := len(FeatureNames)
	c := &CentroidClassifier{centroids: make(map[int][]float64, len(records)-1)}
	for i, rec := range records[1:] {
		if len(rec) != width+1 {
			return nil, fmt.Errorf("centroids line %d: expected %d columns, got %d", i+1, width+1, len(rec))
		}
		idx := IndexOf(strings.TrimSpace(rec[0]))
		if idx < 0 {
			return nil, fmt.Errorf("centroids line %d: unknown label %q", i+1, rec[0])
		}

		values := make([]float64, width)
		for k := 0; k < width; k++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[k+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("centroids line %d: %s: %w", i+1, FeatureNames[k], err)
			}
			values[k] = v
		}
		c.centroids[idx] = values
	}
	c.scale = spread(c.centroids, width)
	return c, nil
}

// spread 피처별 centroid 표준편차 (0 이면 1)
func spread(centroids map[int][]float64, width int) []float64 {
	scale := make([]float64, width)
	n := float64(len(centroids))
	for k := 0; k < width; k++ {
		var sum, sq float64
		for _, c := range centroids {
			sum += c[k]
		}
		m := sum / n
		for _, c := range centroids {
			sq += (c[k] - m) * (c[k] - m)
		}
		scale[k] = math.Sqrt(sq / n)
		if scale[k] == 0 {
			scale[k] = 1
		}
	}
	return scale
}

// Classify implements Classifier
// 거리가 같으면 인덱스가 작은 라벨.
func (c *CentroidClassifier) Classify(ctx context.Context, features []float64) (int, error) {
	if len(features) != len(c.scale) {
		return -1, fmt.Errorf("expected %d features, got %d", len(c.scale), len(features))
	}

	best, bestDist := -1, math.Inf(1)
	for idx := range Labels {
		centroid, ok := c.centroids[idx]
		if !ok {
			continue
		}
		var d float64
		for k, v := range features {
			z := (v - centroid[k]) / c.scale[k]
			d += z * z
		}
		if d < bestDist {
			best, bestDist = idx, d
		}
	}
	return best, nil
}
