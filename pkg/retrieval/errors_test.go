package retrieval

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")

	tests := []struct {
		name    string
		class   error
		cause   error
		wantNil bool
		wantMsg string
	}{
		{name: "nil cause", class: ErrIndexBackend, cause: nil, wantNil: true},
		{name: "wraps cause", class: ErrIndexBackend, cause: cause, wantMsg: "index backend failure: connection refused"},
		{name: "already classified", class: ErrEncoding, cause: classify(ErrEncoding, cause), wantMsg: "encoding failure: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := classify(tt.class, tt.cause)
			if tt.wantNil {
				if err != nil {
					t.Fatalf("classify() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.class) || !errors.Is(err, cause) {
				t.Errorf("classify() = %v, want to match class and cause", err)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}
