package matching

// Similarity returns the Jaccard coefficient |a∩b| / |a∪b| of two label
// sets. Two empty sets have similarity 0, not 1.
func Similarity(a, b LabelSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}

	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for label := range small {
		if _, ok := large[label]; ok {
			inter++
		}
	}

	union := len(a) + len(b) - inter
	if union == 0 {
		return 0.0
	}
	return float64(inter) / float64(union)
}

// SimilarityOf normalizes two raw label lists and compares them.
func SimilarityOf(a, b []string) float64 {
	return Similarity(NewLabelSet(a...), NewLabelSet(b...))
}
