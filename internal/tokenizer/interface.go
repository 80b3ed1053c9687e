// Package tokenizer provides interfaces for text tokenization operations used
// to target chunk sizes and estimate usage before and after provider calls.
package tokenizer

import (
	"context"
)

// Estimator estimates the number of tokens in text content.
// The chunker uses this to binary-search a character offset that hits a
// token target within tolerance.
type Estimator interface {
	// EstimateText estimates the number of tokens in the given text.
	EstimateText(ctx context.Context, text string) (int, error)
}

// Encoder converts text into token sequences.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]int, error)
}

// Decoder converts token sequences back into text.
type Decoder interface {
	Decode(ctx context.Context, tokens []int) (string, error)
}

// Tokenizer combines encoding, decoding and estimation.
type Tokenizer interface {
	Estimator
	Encoder
	Decoder
}
