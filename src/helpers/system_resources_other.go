//go:build !linux

package helpers

// GetTotalSystemMemoryMB is unknown off Linux; callers fall back to a floor.
func GetTotalSystemMemoryMB() int {
	return 0
}
