package topics

import (
	"fmt"
	"math"
	"reflect"

	"github.com/humilityai/hdbscan"
)

// clusterAssignments runs HDBSCAN on the reduced vectors and returns one
// cluster id per row, with -1 for noise points.
func clusterAssignments(vectors [][]float64, minClusterSize int) ([]int, error) {
	clustering, err := hdbscan.NewClustering(vectors, minClusterSize)
	if err != nil {
		return nil, fmt.Errorf("building clustering: %w", err)
	}
	clustering = clustering.OutlierDetection()
	// Cosine distance: Euclidean falls apart on high-dimensional embeddings.
	if err := clustering.Run(cosineDistance, hdbscan.VarianceScore, false); err != nil {
		return nil, fmt.Errorf("hdbscan run: %w", err)
	}

	assignments := make([]int, len(vectors))
	for i := range assignments {
		assignments[i] = -1
	}
	for clusterID, cluster := range extractClusterPoints(clustering) {
		for _, pointIdx := range cluster {
			if pointIdx >= 0 && pointIdx < len(assignments) {
				assignments[pointIdx] = clusterID
			}
		}
	}
	return assignments, nil
}

// extractClusterPoints pulls per-cluster point indices out of the clustering
// result via reflection; the library does not export an assignment accessor.
func extractClusterPoints(clustering *hdbscan.Clustering) [][]int {
	v := reflect.ValueOf(clustering).Elem()
	clustersField := v.FieldByName("Clusters")
	if !clustersField.IsValid() {
		return nil
	}
	out := make([][]int, 0, clustersField.Len())
	for i := 0; i < clustersField.Len(); i++ {
		clusterVal := clustersField.Index(i)
		if clusterVal.Kind() == reflect.Ptr {
			if clusterVal.IsNil() {
				out = append(out, nil)
				continue
			}
			clusterVal = clusterVal.Elem()
		}
		pointsField := clusterVal.FieldByName("Points")
		if !pointsField.IsValid() || pointsField.Kind() != reflect.Slice {
			out = append(out, nil)
			continue
		}
		points := make([]int, pointsField.Len())
		for j := 0; j < pointsField.Len(); j++ {
			points[j] = int(pointsField.Index(j).Int())
		}
		out = append(out, points)
	}
	return out
}

// cosineDistance is 1 - cosine similarity, clamped against floating point
// drift.
func cosineDistance(x1, x2 []float64) float64 {
	if len(x1) != len(x2) {
		return 1.0
	}
	var dot, mag1, mag2 float64
	for i := range x1 {
		dot += x1[i] * x2[i]
		mag1 += x1[i] * x1[i]
		mag2 += x2[i] * x2[i]
	}
	if mag1 == 0 || mag2 == 0 {
		return 1.0
	}
	similarity := dot / (math.Sqrt(mag1) * math.Sqrt(mag2))
	if similarity > 1.0 {
		similarity = 1.0
	} else if similarity < -1.0 {
		similarity = -1.0
	}
	return 1.0 - similarity
}
