package common

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Account store test settings. Each test selects its own database inside
// SurrealNamespace so tests never share users or watchlists.
const (
	SurrealNamespace = "fleece_test"
	SurrealUser      = "root"
	SurrealPassword  = "root"

	defaultSurrealImage = "surrealdb/surrealdb:v3.0.0"
	surrealPort         = "8000/tcp"
)

var (
	surrealOnce      sync.Once
	surrealContainer *SurrealDBContainer
	surrealError     error
)

// SurrealDBContainer is the account store shared by every test in the process.
type SurrealDBContainer struct {
	container testcontainers.Container
	address   string
}

// surrealImage honours FLEECE_TEST_SURREAL_IMAGE for running against
// another server release.
func surrealImage() string {
	if img := strings.TrimSpace(os.Getenv("FLEECE_TEST_SURREAL_IMAGE")); img != "" {
		return img
	}
	return defaultSurrealImage
}

func startSurreal(ctx context.Context) (*SurrealDBContainer, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        surrealImage(),
			ExposedPorts: []string{surrealPort},
			Cmd:          []string{"start", "--user", SurrealUser, "--pass", SurrealPassword},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort(surrealPort),
				wait.ForLog("Started web server"),
			).WithDeadline(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start account store container: %w", err)
	}

	endpoint, err := container.PortEndpoint(ctx, surrealPort, "ws")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("resolve account store endpoint: %w", err)
	}

	return &SurrealDBContainer{container: container, address: endpoint + "/rpc"}, nil
}

// StartSurrealDB returns the shared account store container, starting it on
// first use. Skipped unless FLEECE_TEST_DOCKER=true.
func StartSurrealDB(t *testing.T) *SurrealDBContainer {
	t.Helper()
	RequireDocker(t)

	surrealOnce.Do(func() {
		surrealContainer, surrealError = startSurreal(context.Background())
	})
	if surrealError != nil {
		t.Fatalf("account store container failed: %v", surrealError)
	}
	return surrealContainer
}

// Address returns the WebSocket RPC address.
func (c *SurrealDBContainer) Address() string {
	return c.address
}

// DatabaseName returns a database name unique to the test. Subtest names
// contain "/", which SurrealDB rejects.
func (c *SurrealDBContainer) DatabaseName(t *testing.T) string {
	sanitized := strings.NewReplacer("/", "_", " ", "_", "-", "_").Replace(t.Name())
	return fmt.Sprintf("t_%s_%d", sanitized, time.Now().UnixNano()%1000000)
}

// Cleanup terminates the container.
func (c *SurrealDBContainer) Cleanup() {
	if c != nil && c.container != nil {
		c.container.Terminate(context.Background())
	}
}
