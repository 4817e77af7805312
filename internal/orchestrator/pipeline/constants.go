// Package pipeline turns one screenshot into OCR text lines.
package pipeline

// MaxHashDistance is the largest perceptual-hash Hamming distance at which two
// frames count as the same screen (about 95% similarity of 64 bits).
const MaxHashDistance = 3
