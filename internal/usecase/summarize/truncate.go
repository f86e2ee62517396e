package summarize

import (
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// Encoding is the tokenizer used for candidate text budgets.
const Encoding = "cl100k_base"

// runesPerToken approximates token length when no tokenizer is available.
const runesPerToken = 4

// TokenTruncator cuts text at a token boundary of a tiktoken encoding.
type TokenTruncator struct {
	tkm *tiktoken.Tiktoken
}

// Truncate returns text unchanged when it fits maxTokens or maxTokens <= 0.
func (t *TokenTruncator) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	tokens := t.tkm.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.tkm.Decode(tokens[:maxTokens])
}

// RuneTruncator approximates a token budget by rune count.
type RuneTruncator struct{}

// Truncate keeps at most maxTokens*4 runes; maxTokens <= 0 disables truncation.
func (RuneTruncator) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	limit := maxTokens * runesPerToken
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// NewTruncator loads the tiktoken encoding and falls back to RuneTruncator when the
// encoding cannot be loaded (it is fetched on first use unless cached locally).
func NewTruncator(logger *zap.Logger) Truncator {
	tkm, err := tiktoken.GetEncoding(Encoding)
	if err != nil {
		logger.Warn("Tokenizer unavailable, truncating by rune count",
			zap.String("encoding", Encoding),
			zap.Error(err),
		)
		return RuneTruncator{}
	}
	return &TokenTruncator{tkm: tkm}
}
