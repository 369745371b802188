package retrieval

import (
	"math"
	"reflect"
	"testing"
)

func ptr(f float64) *float64 { return &f }

func TestFormatRating(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		rating *float64
		want   string
	}{
		{name: "nil", rating: nil, want: RatingUnknown},
		{name: "NaN", rating: ptr(math.NaN()), want: RatingUnknown},
		{name: "whole", rating: ptr(4), want: "4.0"},
		{name: "zero", rating: ptr(0), want: "0.0"},
		{name: "fraction", rating: ptr(4.5), want: "4.5"},
		{name: "long fraction", rating: ptr(3.25), want: "3.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatRating(tt.rating); got != tt.want {
				t.Errorf("FormatRating() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIDs(t *testing.T) {
	t.Parallel()

	if got := CollectionName("42"); got != "product_42" {
		t.Errorf("CollectionName() = %q", got)
	}
	if got := DescriptionID("42"); got != "42_description" {
		t.Errorf("DescriptionID() = %q", got)
	}
	if got := ReviewDocumentID("42", "r7"); got != "42_review_r7" {
		t.Errorf("ReviewDocumentID() = %q", got)
	}
	if got := ReviewKey(Review{}, 3); got != "review_3" {
		t.Errorf("ReviewKey() fallback = %q", got)
	}
	if got := ReviewKey(Review{ReviewID: "abc"}, 3); got != "abc" {
		t.Errorf("ReviewKey() = %q", got)
	}
}

func TestBuildDocuments(t *testing.T) {
	t.Parallel()

	docs, dups := BuildDocuments("p1", "A kettle", []Review{
		{ReviewID: "r1", Content: "boils fast", Rating: ptr(5)},
		{Content: "no id here"},
		{ReviewID: "r1", Content: "boils fast, but loud", Rating: ptr(3.5)},
	})

	wantIDs := []string{"p1_description", "p1_review_r1", "p1_review_review_1"}
	var gotIDs []string
	for _, d := range docs {
		gotIDs = append(gotIDs, d.ID)
	}
	if !reflect.DeepEqual(gotIDs, wantIDs) {
		t.Fatalf("ids = %v, want %v", gotIDs, wantIDs)
	}
	if !reflect.DeepEqual(dups, []string{"r1"}) {
		t.Errorf("duplicates = %v, want [r1]", dups)
	}

	if docs[0].Kind != KindDescription || docs[0].Text != "A kettle" {
		t.Errorf("description doc = %+v", docs[0])
	}
	if docs[1].Text != "boils fast, but loud" || docs[1].Rating != "3.5" {
		t.Errorf("later duplicate should win in place, got %+v", docs[1])
	}
	if docs[2].Rating != RatingUnknown || docs[2].ReviewID != "review_1" {
		t.Errorf("unrated review = %+v", docs[2])
	}
}

func TestDocumentMetadataRoundTrip(t *testing.T) {
	t.Parallel()

	review := Document{ID: "p1_review_r1", Text: "ok", Kind: KindReview, ProductID: "p1", ReviewID: "r1", Rating: "4.0"}
	meta := review.Metadata()
	want := map[string]string{MetaType: "review", MetaProductID: "p1", MetaReviewID: "r1", MetaRating: "4.0"}
	if !reflect.DeepEqual(meta, want) {
		t.Errorf("Metadata() = %v, want %v", meta, want)
	}
	if got := DocumentFromRecord(Record{ID: review.ID, Text: review.Text, Metadata: meta}); got != review {
		t.Errorf("DocumentFromRecord() = %+v, want %+v", got, review)
	}

	desc := Document{ID: "p1_description", Text: "d", Kind: KindDescription, ProductID: "p1"}
	if _, ok := desc.Metadata()[MetaRating]; ok {
		t.Error("description metadata should not carry a rating")
	}

	bare := DocumentFromRecord(Record{ID: "x", Metadata: map[string]string{MetaType: "review"}})
	if bare.Rating != RatingUnknown {
		t.Errorf("missing rating = %q, want %q", bare.Rating, RatingUnknown)
	}
}
