package som

import (
	"fmt"
	"math"
)

// ReceptiveField computes, per unit, the common suffix of the label
// sequences that lead to that unit winning. identities holds one label
// per input row, in sequence order. maxLen bounds the window length;
// threshold is the fraction of windows that must share a suffix element
// for it to count as acquired.
func (s *Som) ReceptiveField(X *Tensor, identities []string, maxLen int, threshold float64, batchSize int) (map[int][]string, error) {
	if X == nil || len(X.Shape) != 2 || X.Rows() != len(identities) {
		return nil, fmt.Errorf("input and identities are not the same length: %d and %d",
			tensorRows(X), len(identities))
	}
	if maxLen < 1 {
		return nil, fmt.Errorf("window length must be positive, got %d", maxLen)
	}

	predictions, err := s.Predict(X, batchSize)
	if err != nil {
		return nil, err
	}

	windows := make(map[int][][]string)
	for idx, p := range predictions {
		start := idx + 1 - maxLen
		if start < 0 {
			start = 0
		}
		w := identities[start : idx+1]
		if len(w) > 0 {
			windows[p] = append(windows[p], w)
		}
	}

	fields := make(map[int][]string)
	for unit, ws := range windows {
		total := len(ws)
		minLen := len(ws[0])
		for _, w := range ws {
			if len(w) < minLen {
				minLen = len(w)
			}
		}

		// Walk the windows back to front; stop at the first position
		// where no label clears the threshold.
		var suffix []string
		for offset := 1; offset <= minLen; offset++ {
			counts := make(map[string]int)
			for _, w := range ws {
				counts[w[len(w)-offset]]++
			}
			found := ""
			for label, count := range counts {
				if float64(count)/float64(total) > threshold {
					found = label
					break
				}
			}
			if found == "" {
				break
			}
			suffix = append(suffix, found)
		}

		// Reverse into sequence order.
		for i, j := 0, len(suffix)-1; i < j; i, j = i+1, j-1 {
			suffix[i], suffix[j] = suffix[j], suffix[i]
		}
		if len(suffix) > 0 {
			fields[unit] = suffix
		}
	}

	return fields, nil
}

// InvertProjection associates each unit with the label of the input
// datum its weight vector matches best. Works best for symbolic input.
// Returns one label per unit.
func (s *Som) InvertProjection(X *Tensor, identities []string, batchSize int) ([]string, error) {
	if X == nil || len(X.Shape) != 2 || X.Rows() != len(identities) {
		return nil, fmt.Errorf("input and identities are not the same length: %d and %d",
			tensorRows(X), len(identities))
	}

	// Deduplicate rows, keeping the first occurrence of each.
	seen := make(map[string]bool)
	var unique []int
	for i := 0; i < X.Rows(); i++ {
		key := rowKey(X.Row(i))
		if !seen[key] {
			seen[key] = true
			unique = append(unique, i)
		}
	}

	uniqueX := NewTensor(len(unique), X.Cols())
	for i, idx := range unique {
		copy(uniqueX.Row(i), X.Row(idx))
	}

	act, err := s.predictBase(uniqueX, batchSize)
	if err != nil {
		return nil, err
	}

	// For every unit, the unique datum with the smallest distance wins.
	match := make([]string, s.units)
	for u := 0; u < s.units; u++ {
		best := 0
		bestVal := act.Data[u]
		for i := 1; i < act.Rows(); i++ {
			if v := act.Data[i*s.units+u]; v < bestVal {
				best = i
				bestVal = v
			}
		}
		match[u] = identities[unique[best]]
	}
	return match, nil
}

func tensorRows(t *Tensor) int {
	if t == nil || len(t.Shape) == 0 {
		return 0
	}
	return t.Shape[0]
}

func rowKey(row []float32) string {
	key := make([]byte, 0, len(row)*4)
	for _, v := range row {
		bits := math.Float32bits(v)
		key = append(key, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
	}
	return string(key)
}
