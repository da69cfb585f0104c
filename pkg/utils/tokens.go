package utils

import (
	"github.com/pkoukk/tiktoken-go"
)

// NumTokens estimates the prompt size of text. The count is approximate for
// non-OpenAI models and only used for logging.
func NumTokens(text string) (int, error) {
	tkm, err := tiktoken.EncodingForModel("gpt-4-0613")
	if err != nil {
		return 0, err
	}

	return len(tkm.Encode(text, nil, nil)), nil
}
