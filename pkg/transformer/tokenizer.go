package transformer

import (
	"fmt"
	"strings"
)

// Special token constants. They occupy the first vocabulary slots.
const (
	PadToken = "<|pad|>"
	UnkToken = "<|unk|>"
	EosToken = "<|endoftext|>"
)

const numSpecialTokens = 3

// Tokenizer is a byte-level tokenizer: every byte maps to a fixed
// vocabulary slot after the special tokens. It can represent any input
// without unknown tokens, which keeps the visualizer's token axis
// faithful to the submitted text.
type Tokenizer struct{}

// NewTokenizer creates a byte-level tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// VocabSize returns the number of token IDs the tokenizer can emit.
func (t *Tokenizer) VocabSize() int {
	return numSpecialTokens + 256
}

// Encode converts text to token IDs.
func (t *Tokenizer) Encode(text string) []int {
	b := []byte(text)
	ids := make([]int, len(b))
	for i, c := range b {
		ids[i] = numSpecialTokens + int(c)
	}
	return ids
}

// Decode converts token IDs back to text. Special tokens decode to
// their literal names.
func (t *Tokenizer) Decode(ids []int) string {
	var sb strings.Builder
	for _, id := range ids {
		switch id {
		case 0:
			sb.WriteString(PadToken)
		case 1:
			sb.WriteString(UnkToken)
		case 2:
			sb.WriteString(EosToken)
		default:
			sb.WriteByte(byte(id - numSpecialTokens))
		}
	}
	return sb.String()
}

// Tokens returns a human-readable token string per ID, for labeling the
// attention axes. Spaces render as "▁" and non-printable bytes as hex.
func (t *Tokenizer) Tokens(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		switch {
		case id == 0:
			out[i] = PadToken
		case id == 1:
			out[i] = UnkToken
		case id == 2:
			out[i] = EosToken
		default:
			b := byte(id - numSpecialTokens)
			switch {
			case b == ' ':
				out[i] = "▁"
			case b >= 0x21 && b <= 0x7e:
				out[i] = string(b)
			default:
				out[i] = fmt.Sprintf("<0x%02X>", b)
			}
		}
	}
	return out
}

// Truncate limits ids to at most maxLen tokens.
func Truncate(ids []int, maxLen int) []int {
	if len(ids) <= maxLen {
		return ids
	}
	return ids[:maxLen]
}
