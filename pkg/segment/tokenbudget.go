package segment

import "github.com/pkoukk/tiktoken-go"

// tokenEncoding matches the teacher's unit-chunking encoder choice.
const tokenEncoding = "cl100k_base"

// CountTokens returns the token count of text under the same encoding the
// teacher uses to size its own processing units, so an oversized source can
// be rejected before sentence segmentation and topic fitting run on it.
func CountTokens(text string) (int, error) {
	enc, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}
