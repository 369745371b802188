package retrieval

import (
	"math"
	"strconv"
)

// Metadata keys written on every record.
const (
	MetaType      = "type"
	MetaProductID = "product_id"
	MetaReviewID  = "review_id"
	MetaRating    = "rating"
)

// CollectionName returns the collection that holds a product's documents.
func CollectionName(productID string) string {
	return "product_" + productID
}

// CollectionDescription is the human-readable label stored with a collection.
func CollectionDescription(productID string) string {
	return "Reviews and description for product " + productID
}

// DescriptionID returns the stable id of a product's description document.
func DescriptionID(productID string) string {
	return productID + "_description"
}

// ReviewKey returns the caller's review identifier, or the positional
// fallback "review_<index>" when it is empty.
func ReviewKey(review Review, index int) string {
	if review.ReviewID != "" {
		return review.ReviewID
	}
	return "review_" + strconv.Itoa(index)
}

// ReviewDocumentID returns the stable id of a review document.
func ReviewDocumentID(productID, reviewKey string) string {
	return productID + "_review_" + reviewKey
}

// FormatRating renders a rating for metadata and prompts. Whole numbers keep
// one decimal ("4.0"); nil renders as RatingUnknown.
func FormatRating(rating *float64) string {
	if rating == nil || math.IsNaN(*rating) {
		return RatingUnknown
	}
	r := *rating
	if r == math.Trunc(r) && !math.IsInf(r, 0) {
		return strconv.FormatFloat(r, 'f', 1, 64)
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// BuildDocuments derives the documents of one index call: the description
// first, then one document per distinct review key. When two reviews share a
// key the later one replaces the earlier in place. The second return value
// lists the keys that were duplicated.
func BuildDocuments(productID, description string, reviews []Review) ([]Document, []string) {
	docs := make([]Document, 0, len(reviews)+1)
	docs = append(docs, Document{
		ID:        DescriptionID(productID),
		Text:      description,
		Kind:      KindDescription,
		ProductID: productID,
	})

	slot := make(map[string]int, len(reviews))
	var duplicates []string
	for i, review := range reviews {
		key := ReviewKey(review, i)
		doc := Document{
			ID:        ReviewDocumentID(productID, key),
			Text:      review.Content,
			Kind:      KindReview,
			ProductID: productID,
			ReviewID:  key,
			Rating:    FormatRating(review.Rating),
		}
		if at, ok := slot[key]; ok {
			docs[at] = doc
			duplicates = append(duplicates, key)
			continue
		}
		slot[key] = len(docs)
		docs = append(docs, doc)
	}
	return docs, duplicates
}

// Metadata returns the record metadata of d.
func (d Document) Metadata() map[string]string {
	meta := map[string]string{
		MetaType:      string(d.Kind),
		MetaProductID: d.ProductID,
	}
	if d.Kind == KindReview {
		meta[MetaReviewID] = d.ReviewID
		meta[MetaRating] = d.Rating
	}
	return meta
}

// DocumentFromRecord rebuilds a Document from its stored form.
func DocumentFromRecord(r Record) Document {
	doc := Document{
		ID:        r.ID,
		Text:      r.Text,
		Kind:      Kind(r.Metadata[MetaType]),
		ProductID: r.Metadata[MetaProductID],
	}
	if doc.Kind == KindReview {
		doc.ReviewID = r.Metadata[MetaReviewID]
		doc.Rating = r.Metadata[MetaRating]
		if doc.Rating == "" {
			doc.Rating = RatingUnknown
		}
	}
	return doc
}
