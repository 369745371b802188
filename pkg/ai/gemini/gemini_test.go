package gemini

import (
	"context"
	"testing"

	"github.com/calque-ai/reviewchat/pkg/retrieval"
)

func TestToContents(t *testing.T) {
	t.Parallel()

	system, contents := toContents([]retrieval.Message{
		{Role: retrieval.RoleSystem, Content: "rules"},
		{Role: retrieval.RoleUser, Content: "q1"},
		{Role: retrieval.RoleAssistant, Content: "a1"},
		{Role: retrieval.RoleSystem, Content: "more rules"},
		{Role: retrieval.RoleUser, Content: "q2"},
	})

	if system != "rules\n\nmore rules" {
		t.Errorf("system = %q", system)
	}
	wantRoles := []string{"user", "model", "user"}
	wantText := []string{"q1", "a1", "q2"}
	if len(contents) != len(wantRoles) {
		t.Fatalf("len(contents) = %d, want %d", len(contents), len(wantRoles))
	}
	for i, c := range contents {
		if c.Role != wantRoles[i] || c.Parts[0].Text != wantText[i] {
			t.Errorf("contents[%d] = %s %q, want %s %q", i, c.Role, c.Parts[0].Text, wantRoles[i], wantText[i])
		}
	}
}

func TestToContents_NoSystem(t *testing.T) {
	t.Parallel()

	system, contents := toContents([]retrieval.Message{{Role: retrieval.RoleUser, Content: "hi"}})
	if system != "" || len(contents) != 1 {
		t.Errorf("toContents() = %q, %d contents", system, len(contents))
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")

	if _, err := New(context.Background(), nil); err == nil {
		t.Error("New() without API key should fail")
	}
}
