package intent

import "strings"

// Intent is the classified purpose of an inbound message.
type Intent int

const (
	Text Intent = iota
	ImageGenerate
	ImageCombine
	// ImageReceive is never produced by the classifier. The router raises it
	// itself when the inbound event carries a media attachment.
	ImageReceive
)

func (i Intent) String() string {
	switch i {
	case ImageGenerate:
		return "image_generate"
	case ImageCombine:
		return "image_combine"
	case ImageReceive:
		return "image_receive"
	default:
		return "text"
	}
}

// DefaultCombineKeywords trigger the two-image composition workflow.
var DefaultCombineKeywords = []string{"combine images", "combine the images", "merge images"}

// DefaultGenerateKeywords trigger image generation.
var DefaultGenerateKeywords = []string{"generate image", "create image", "draw", "/generate"}

type Classifier struct {
	combine  []string
	generate []string
}

// NewClassifier builds a classifier from keyword lists. Empty lists fall
// back to the defaults.
func NewClassifier(combine, generate []string) *Classifier {
	if len(combine) == 0 {
		combine = DefaultCombineKeywords
	}
	if len(generate) == 0 {
		generate = DefaultGenerateKeywords
	}

	lower := func(words []string) []string {
		out := make([]string, len(words))
		for i, w := range words {
			out[i] = strings.ToLower(w)
		}
		return out
	}

	return &Classifier{combine: lower(combine), generate: lower(generate)}
}

// Classify maps message text to an intent. Case-insensitive substring
// match, combine keywords win over generate keywords, anything else is
// plain text. Empty or whitespace-only input classifies as Text.
func (c *Classifier) Classify(text string) Intent {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return Text
	}

	for _, kw := range c.combine {
		if strings.Contains(lowered, kw) {
			return ImageCombine
		}
	}

	for _, kw := range c.generate {
		if strings.Contains(lowered, kw) {
			return ImageGenerate
		}
	}

	return Text
}
