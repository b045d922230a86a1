package ml

import "errors"

// BalancedAccuracy is the mean recall over the classes present in yTrue.
func BalancedAccuracy(yTrue, yPred []int) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, errors.New("yTrue and yPred size mismatch")
	}
	if len(yTrue) == 0 {
		return 0, errors.New("no predictions")
	}
	support := make(map[int]int)
	hits := make(map[int]int)
	for i, y := range yTrue {
		support[y]++
		if yPred[i] == y {
			hits[y]++
		}
	}
	var sum float64
	for class, n := range support {
		sum += float64(hits[class]) / float64(n)
	}
	return sum / float64(len(support)), nil
}
