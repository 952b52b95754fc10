package concurrency

import "fmt"

// ConstructName builds a worker name from a prefix and a number, zero-padding
// single-digit numbers when the maximum number needs two digits so that names
// sort lexicographically.
func ConstructName(prefix string, number, maxNumber int) string {
	if maxNumber > 9 && number <= 9 {
		return fmt.Sprintf("%s0%d", prefix, number)
	}
	return fmt.Sprintf("%s%d", prefix, number)
}
