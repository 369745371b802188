package qdrant

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/google/uuid"
	qd "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/calque-ai/reviewchat/pkg/retrieval"
)

func TestParseAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		host    string
		port    int
		tls     bool
		wantErr bool
	}{
		{name: "explicit port", url: "http://localhost:6334", host: "localhost", port: 6334},
		{name: "default port", url: "http://qdrant", host: "qdrant", port: 6334},
		{name: "https", url: "https://cluster.cloud.qdrant.io:6334", host: "cluster.cloud.qdrant.io", port: 6334, tls: true},
		{name: "missing host", url: "localhost", wantErr: true},
		{name: "bad port", url: "http://localhost:grpc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			host, port, useTLS, err := parseAddress(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseAddress(%q) expected error", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAddress(%q) error = %v", tt.url, err)
			}
			if host != tt.host || port != tt.port || useTLS != tt.tls {
				t.Errorf("parseAddress(%q) = %q, %d, %v", tt.url, host, port, useTLS)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); err == nil {
		t.Error("New(nil) expected error")
	}
	if _, err := New(&Config{URL: "http://localhost:6334"}); err == nil {
		t.Error("New() without vector size expected error")
	}
}

func TestPointID(t *testing.T) {
	t.Parallel()

	a := pointID("p1_review_r1").GetUuid()
	b := pointID("p1_review_r1").GetUuid()
	c := pointID("p1_review_r2").GetUuid()

	if a != b {
		t.Errorf("pointID not stable: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different document IDs produced the same point ID")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("pointID %q is not a UUID: %v", a, err)
	}
}

func TestPayloadRecord(t *testing.T) {
	t.Parallel()

	in := retrieval.Record{
		ID:      "p1_review_r1",
		Text:    "Battery lasts two days.",
		Ordinal: 3,
		Metadata: map[string]string{
			"type":       "review",
			"product_id": "p1",
			"review_id":  "r1",
			"rating":     "4.0",
		},
	}

	payload := buildPayload(in)
	if got := payload[payloadDocID].GetStringValue(); got != in.ID {
		t.Errorf("doc_id = %q, want %q", got, in.ID)
	}

	out := recordFromPayload(payload)
	if out.ID != in.ID || out.Text != in.Text || out.Ordinal != in.Ordinal {
		t.Errorf("recordFromPayload() = %+v, want %+v", out, in)
	}
	for k, v := range in.Metadata {
		if out.Metadata[k] != v {
			t.Errorf("metadata[%s] = %q, want %q", k, out.Metadata[k], v)
		}
	}
}

func TestDenseVector(t *testing.T) {
	t.Parallel()

	if got := denseVector(nil); got != nil {
		t.Errorf("denseVector(nil) = %v, want nil", got)
	}
	want := []float32{0.5, -0.25, 1}
	if got := denseVector(&qd.VectorOutput{Data: want}); !reflect.DeepEqual(got, want) {
		t.Errorf("denseVector() = %v, want %v", got, want)
	}
}

func TestWrapNotFound(t *testing.T) {
	t.Parallel()

	notFound := fmt.Errorf("qdrant search failed: %w", status.Error(codes.NotFound, "collection product_p1 not found"))
	if err := wrapNotFound("product_p1", notFound); !errors.Is(err, retrieval.ErrCollectionNotFound) {
		t.Errorf("wrapNotFound() = %v, want ErrCollectionNotFound", err)
	}

	other := status.Error(codes.Unavailable, "connection refused")
	if err := wrapNotFound("product_p1", other); errors.Is(err, retrieval.ErrCollectionNotFound) {
		t.Errorf("wrapNotFound() = %v, should not be ErrCollectionNotFound", err)
	}
}
