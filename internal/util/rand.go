package util

import (
	"crypto/rand"
	"math/big"
)

// hexDigits defines the character set for random hex strings.
var hexDigits = []rune("0123456789abcdef")

// RandHex generates a random lowercase hex string of the given length.
//
// Parameters:
//   - length: Number of characters to generate.
//
// Returns:
//   - string: Random hex string.
func RandHex(length int) string {
	buffer := make([]rune, length)
	for i := range buffer {
		// Use crypto/rand for secure randomness.
		index, _ := rand.Int(rand.Reader, big.NewInt(int64(len(hexDigits))))
		buffer[i] = hexDigits[index.Int64()]
	}

	return string(buffer)
}
