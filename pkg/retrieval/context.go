package retrieval

import "strings"

// NoGroundingNotice is the context rendered when retrieval found nothing.
const NoGroundingNotice = "No product information or reviews were found for this question."

// ContextText is the grounding text for one answer. Grounded is false when
// no document was retrieved; Text is then empty and String returns
// NoGroundingNotice.
type ContextText struct {
	Text     string
	Grounded bool
}

// String returns the text to place in the system message.
func (c ContextText) String() string {
	if !c.Grounded {
		return NoGroundingNotice
	}
	return c.Text
}

// AssembleContext renders hits, in rank order, as labelled blocks separated
// by a blank line:
//
//	[Product Description]
//	<text>
//
//	[Review - Rating: 4.0]
//	<text>
func AssembleContext(result SearchResult) ContextText {
	if len(result.Hits) == 0 {
		return ContextText{}
	}

	blocks := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		switch hit.Document.Kind {
		case KindDescription:
			blocks = append(blocks, "[Product Description]\n"+hit.Document.Text)
		case KindReview:
			rating := hit.Document.Rating
			if rating == "" {
				rating = RatingUnknown
			}
			blocks = append(blocks, "[Review - Rating: "+rating+"]\n"+hit.Document.Text)
		}
	}
	if len(blocks) == 0 {
		return ContextText{}
	}
	return ContextText{Text: strings.Join(blocks, "\n\n"), Grounded: true}
}
