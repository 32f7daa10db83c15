package testing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/elasticsearch"
	"github.com/testcontainers/testcontainers-go/wait"
)

const esImage = "docker.elastic.co/elasticsearch/elasticsearch:8.19.0"

// ESContainer is a single-node Elasticsearch with security disabled.
type ESContainer struct {
	Container testcontainers.Container
	Address   string
}

// NewESContainer starts Elasticsearch for the test and terminates it on cleanup.
// The test is skipped in short mode.
func NewESContainer(ctx context.Context, tb testing.TB) *ESContainer {
	tb.Helper()
	SkipIfShort(tb, "elasticsearch")

	esContainer, err := elasticsearch.Run(ctx, esImage,
		elasticsearch.WithPassword(""),
		testcontainers.WithEnv(map[string]string{
			"xpack.security.enabled": "false",
			"ES_JAVA_OPTS":           "-Xms512m -Xmx512m",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/_cluster/health").
				WithPort("9200").
				WithStartupTimeout(90*time.Second),
		),
	)
	if err != nil {
		tb.Fatalf("failed to start elasticsearch container: %v", err)
	}
	terminateOnCleanup(tb, esContainer, "elasticsearch")

	address, err := endpoint(ctx, esContainer, "9200")
	if err != nil {
		tb.Fatalf("failed to resolve elasticsearch address: %v", err)
	}

	return &ESContainer{
		Container: esContainer,
		Address:   address,
	}
}

// SkipIfShort skips tests that need docker when -short is set.
func SkipIfShort(tb testing.TB, what string) {
	tb.Helper()
	if testing.Short() {
		tb.Skipf("skipping %s container test in short mode", what)
	}
}

func terminateOnCleanup(tb testing.TB, c testcontainers.Container, what string) {
	tb.Cleanup(func() {
		if err := testcontainers.TerminateContainer(c); err != nil {
			tb.Logf("failed to terminate %s container: %v", what, err)
		}
	})
}

func endpoint(ctx context.Context, c testcontainers.Container, port string) (string, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return "", err
	}
	mapped, err := c.MappedPort(ctx, port+"/tcp")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://%s:%s", host, mapped.Port()), nil
}
