package retrieval

import (
	"strings"
	"testing"
)

func TestBuildSummaryPrompt(t *testing.T) {
	t.Parallel()

	got := BuildSummaryPrompt("Steel kettle", []SummaryReview{
		{Content: "Boils fast", Rating: "5.0"},
		{Content: "Lid sticks", Rating: RatingUnknown},
	}, 7)

	for _, want := range []string{
		"Here is a description and 7 actual user reviews for a product.",
		"Product Description:\nSteel kettle",
		"Review 1 (Rating: 5.0): Boils fast",
		"Review 2 (Rating: N/A): Lid sticks",
		"1. Main advantages",
		"4. Who should buy this product",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(got, "Review 3") {
		t.Error("prompt frames more reviews than given")
	}
}

func TestSummaryRequestMessages(t *testing.T) {
	t.Parallel()

	if msgs := (SummaryRequest{NoReviews: true}).Messages(); msgs != nil {
		t.Errorf("Messages() = %v, want nil", msgs)
	}

	req := SummaryRequest{SystemPrompt: SummarySystemPrompt, Prompt: "p"}
	msgs := req.Messages()
	if len(msgs) != 2 || msgs[0].Role != RoleSystem || msgs[1].Role != RoleUser || msgs[1].Content != "p" {
		t.Errorf("Messages() = %+v", msgs)
	}
}
