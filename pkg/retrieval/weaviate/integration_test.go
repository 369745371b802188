//go:build integration

package weaviate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/calque-ai/reviewchat/pkg/ai"
	"github.com/calque-ai/reviewchat/pkg/retrieval"
)

// setupWeaviate starts a Weaviate container without vectorizer modules.
func setupWeaviate(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "semitechnologies/weaviate:latest",
			ExposedPorts: []string{"8080/tcp"},
			Env: map[string]string{
				"AUTHENTICATION_ANONYMOUS_ACCESS_ENABLED": "true",
				"PERSISTENCE_DATA_PATH":                   "/var/lib/weaviate",
				"DEFAULT_VECTORIZER_MODULE":               "none",
				"ENABLE_MODULES":                          "",
				"CLUSTER_HOSTNAME":                        "node1",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("8080/tcp"),
				wait.ForHTTP("/v1/.well-known/ready").WithPort("8080/tcp"),
			).WithDeadline(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start Weaviate container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	port, err := container.MappedPort(ctx, "8080")
	if err != nil {
		t.Fatalf("failed to get mapped HTTP port: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

func TestWeaviate_ServiceRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	client, err := New(&Config{URL: setupWeaviate(ctx, t)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	svc := retrieval.NewService(client, ai.NewHashEncoder(64))
	reviews := []retrieval.Review{
		{ReviewID: "r1", Content: "Battery lasts all week"},
		{ReviewID: "r2", Content: "Ear cushions are uncomfortable"},
	}
	if report := svc.Index(ctx, "p1", "Wireless headphones", reviews); !report.OK() || report.DocumentsWritten != 3 {
		t.Fatalf("Index() = %+v", report)
	}

	result := svc.Search(ctx, "p1", "ear cushions", 1)
	if result.Len() != 1 || result.Hits[0].Document.ReviewID != "r2" {
		t.Fatalf("Search() = %+v, want r2", result)
	}

	if report := svc.Index(ctx, "p1", "Wireless headphones", reviews[1:]); report.Pruned != 1 {
		t.Errorf("re-index report = %+v, want 1 pruned", report)
	}
	records, err := client.GetAll(ctx, retrieval.CollectionName("p1"))
	if err != nil || len(records) != 2 {
		t.Fatalf("GetAll() = %v, %v", records, err)
	}

	if err := svc.DropCollection(ctx, "p1"); err != nil {
		t.Fatalf("DropCollection() error = %v", err)
	}
	if _, err := client.Query(ctx, retrieval.CollectionName("p1"), make([]float32, 64), 1); !errors.Is(err, retrieval.ErrCollectionNotFound) {
		t.Errorf("Query() after drop error = %v, want ErrCollectionNotFound", err)
	}
}
