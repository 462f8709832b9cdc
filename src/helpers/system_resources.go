package helpers

// RecommendedMemoryLimitMB returns fraction of physical RAM in MB, never below
// floorMB. When RAM cannot be read, floorMB is returned.
func RecommendedMemoryLimitMB(fraction float64, floorMB int) int {
	totalMB := GetTotalSystemMemoryMB()
	if totalMB == 0 {
		return floorMB
	}
	return recommendedLimit(totalMB, fraction, floorMB)
}

func recommendedLimit(totalMB int, fraction float64, floorMB int) int {
	limit := int(float64(totalMB) * fraction)
	if limit < floorMB {
		// Very low memory system
		return min(floorMB, totalMB)
	}
	return limit
}
