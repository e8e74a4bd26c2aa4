package errors

import "math"

// maxReported は1つのエラーに記録する不安定な値の上限です。
const maxReported = 10

// CheckValues はvaluesにNaNまたはInfが含まれていればNumericalInstabilityErrorを
// 返します。エラーには該当する値だけを記録します。
func CheckValues(operation string, values []float64) error {
	var bad []float64
	for _, v := range values {
		if unstable(v) {
			bad = append(bad, v)
			if len(bad) == maxReported {
				break
			}
		}
	}
	if len(bad) > 0 {
		return NewNumericalInstabilityError(operation, bad)
	}
	return nil
}

// CheckMatrix はCheckValuesの行列版です。予測結果やスケーリング後の特徴量の
// 検査に使います。
func CheckMatrix(operation string, m interface {
	Dims() (int, int)
	At(i, j int) float64
}) error {
	rows, cols := m.Dims()
	var bad []float64
	for i := 0; i < rows && len(bad) < maxReported; i++ {
		for j := 0; j < cols && len(bad) < maxReported; j++ {
			if v := m.At(i, j); unstable(v) {
				bad = append(bad, v)
			}
		}
	}
	if len(bad) > 0 {
		return NewNumericalInstabilityError(operation, bad)
	}
	return nil
}

func unstable(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
