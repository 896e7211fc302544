package inference

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// featurize converts a request into a fixed-width feature vector using
// hashed token counts plus a few surface statistics. The same text
// always produces the same vector, which the model's training pipeline
// relies on.
func featurize(req *Request, dim int) []float32 {
	features := make([]float32, dim)

	// Reserve the tail of the vector for surface statistics and hash
	// tokens into the remainder.
	const statSlots = 4
	hashDim := dim - statSlots

	tokens := tokenize(req.ContentText)
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		features[int(h.Sum32())%hashDim]++
	}

	// L2-normalize the hashed region so feature magnitude does not
	// scale with document length.
	var norm float64
	for i := 0; i < hashDim; i++ {
		norm += float64(features[i]) * float64(features[i])
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := 0; i < hashDim; i++ {
			features[i] *= scale
		}
	}

	features[hashDim] = lengthFeature(len(req.ContentText))
	features[hashDim+1] = upperRatio(req.ContentText)
	features[hashDim+2] = punctRatio(req.ContentText)
	if req.ImageURL != "" {
		features[hashDim+3] = 1
	}

	return features
}

// tokenize lowercases and splits on non-letter boundaries
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// lengthFeature compresses document length into [0, 1)
func lengthFeature(n int) float32 {
	return float32(1 - math.Exp(-float64(n)/1000))
}

// upperRatio returns the fraction of letters that are uppercase
func upperRatio(text string) float32 {
	var letters, upper int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float32(upper) / float32(letters)
}

// punctRatio returns the fraction of runes that are ! or ?
func punctRatio(text string) float32 {
	if len(text) == 0 {
		return 0
	}
	var count, total int
	for _, r := range text {
		total++
		if r == '!' || r == '?' {
			count++
		}
	}
	return float32(count) / float32(total)
}
