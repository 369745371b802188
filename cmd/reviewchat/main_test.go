package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleProducts = `{
  "products": [
    {
      "product_id": "p1",
      "name": "Trail Runner",
      "description": "Lightweight trail running shoe with a grippy outsole",
      "reviews": [
        {"review_id": "r1", "content": "Great grip on wet rocks", "rating": 5},
        {"review_id": "r2", "content": "Runs half a size small", "rating": 3.5}
      ]
    },
    {
      "product_id": "p2",
      "name": "Camp Mug",
      "description": "Insulated steel mug",
      "reviews": []
    }
  ]
}`

func writeProducts(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	if err := os.WriteFile(path, []byte(sampleProducts), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	base := []string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "--env", filepath.Join(t.TempDir(), "missing.env")}
	var out bytes.Buffer
	err := run(context.Background(), append(base, args...), strings.NewReader(stdin), &out)
	return out.String(), err
}

func TestParseProducts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "wrapped", input: sampleProducts, want: 2},
		{name: "bare array", input: ` [{"product_id":"p9","description":"d","reviews":[{"content":"ok"}]}]`, want: 1},
		{name: "empty wrapper", input: `{}`, want: 0},
		{name: "invalid", input: `{"products": [`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseProducts([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseProducts() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}

	products, _ := parseProducts([]byte(sampleProducts))
	if r := products[0].Reviews[1]; r.ReviewID != "r2" || r.Rating == nil || *r.Rating != 3.5 {
		t.Errorf("review = %+v", r)
	}
}

func TestRun_Index(t *testing.T) {
	t.Parallel()

	out, err := runCLI(t, "", "index", "-f", writeProducts(t))
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	for _, want := range []string{"ok   p1 (Trail Runner): 3 documents, 0 pruned", "ok   p2 (Camp Mug): 1 documents, 0 pruned"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_AskAndSummary(t *testing.T) {
	t.Parallel()

	products := writeProducts(t)

	out, err := runCLI(t, "", "--seed", products, "ask", "-p", "p1", "-q", "Does it grip on wet rock?")
	if err != nil {
		t.Fatalf("ask error = %v", err)
	}
	if !strings.Contains(out, "mock generator") {
		t.Errorf("ask output = %q", out)
	}

	out, err = runCLI(t, "", "--seed", products, "summary", "--product", "p2")
	if err != nil {
		t.Fatalf("summary error = %v", err)
	}
	if strings.TrimSpace(out) != "No reviews available yet." {
		t.Errorf("summary output = %q", out)
	}
}

func TestRun_Chat(t *testing.T) {
	t.Parallel()

	out, err := runCLI(t, "how is the grip?\n\nand the sizing?\n", "--seed", writeProducts(t), "chat", "-p", "p1")
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if n := strings.Count(out, "mock generator"); n != 2 {
		t.Errorf("answers = %d, want 2:\n%s", n, out)
	}
}

func TestRun_Drop(t *testing.T) {
	t.Parallel()

	out, err := runCLI(t, "", "drop", "-p", "p1")
	if err != nil {
		t.Fatalf("drop error = %v", err)
	}
	if strings.TrimSpace(out) != "dropped p1" {
		t.Errorf("drop output = %q", out)
	}
}

func TestRun_Usage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown command", args: []string{"explode"}, wantErr: `unknown command "explode"`},
		{name: "missing product", args: []string{"summary"}, wantErr: `required flag(s) "product" not set`},
		{name: "missing question", args: []string{"ask", "-p", "p1"}, wantErr: "a question is required"},
		{name: "stray argument", args: []string{"drop", "-p", "p1", "extra"}, wantErr: "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := runCLI(t, "", tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("run() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestRun_NoCommandPrintsHelp(t *testing.T) {
	t.Parallel()

	out, err := runCLI(t, "")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out, "Available Commands:") {
		t.Errorf("help output = %q", out)
	}
}

func TestRun_Version(t *testing.T) {
	t.Parallel()

	out, err := runCLI(t, "", "version")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if strings.TrimSpace(out) != "reviewchat version dev" {
		t.Errorf("version output = %q", out)
	}
}

func TestRun_IndexMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := runCLI(t, "", "index", "--file", filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("index of a missing file should fail")
	}
}
