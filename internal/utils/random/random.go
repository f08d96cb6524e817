package random

import (
	"math/rand/v2"

	"digestCracker/internal/core/algorithm"
)

func GenerateRandomString(charset string, length int) string {
	if length <= 0 || len(charset) == 0 {
		return ""
	}

	result := make([]byte, length)
	for i := range result {
		result[i] = charset[rand.IntN(len(charset))]
	}
	return string(result)
}

// Candidate picks a uniformly random member of space.
func Candidate(space algorithm.Space) (string, error) {
	return space.CandidateAt(rand.Int64N(space.Size()))
}
