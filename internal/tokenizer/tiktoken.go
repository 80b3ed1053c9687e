package tokenizer

import (
	"context"

	"github.com/pkoukk/tiktoken-go"
)

var _ Tokenizer = (*Tiktoken)(nil)

// Tiktoken estimates and encodes/decodes text tokens using the cl100k_base
// byte-pair encoding, the same family of encodings OpenRouter-compatible
// chat and embedding models are billed against.
type Tiktoken struct {
	encodingName string
	encoding     *tiktoken.Tiktoken
}

// NewTiktokenWithCL100KBase creates a Tiktoken estimator using the
// CL100K_BASE encoding, a reasonable default for most OpenRouter models.
func NewTiktokenWithCL100KBase() *Tiktoken {
	cli, err := NewTiktoken(tiktoken.MODEL_CL100K_BASE)
	if err != nil {
		panic(err)
	}
	return cli
}

// NewTiktoken creates a Tiktoken estimator for the named encoding.
func NewTiktoken(encodingName string) (*Tiktoken, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	return &Tiktoken{
		encodingName: encodingName,
		encoding:     encoding,
	}, nil
}

// EstimateText returns the token count of text under the configured encoding.
func (t *Tiktoken) EstimateText(_ context.Context, text string) (int, error) {
	return len(t.encoding.Encode(text, nil, nil)), nil
}

// Encode converts text into token ids.
func (t *Tiktoken) Encode(_ context.Context, text string) ([]int, error) {
	return t.encoding.Encode(text, nil, nil), nil
}

// Decode converts token ids back into text.
func (t *Tiktoken) Decode(_ context.Context, tokens []int) (string, error) {
	return t.encoding.Decode(tokens), nil
}
