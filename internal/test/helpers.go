// Package test provides the shared postgres container used by the database backed tests.
package test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/leighmacdonald/rglstats/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	ErrContainer = errors.New("failed to bring up test container")

	container     *PostgresContainer //nolint:gochecknoglobals
	containerErr  error              //nolint:gochecknoglobals
	containerOnce sync.Once          //nolint:gochecknoglobals
)

const postgresImage = "postgres:17-alpine"

// PostgresContainer wraps the running container along with the credentials it was started with.
type PostgresContainer struct {
	testcontainers.Container
	dbName   string
	user     string
	password string
	dsn      string
}

func (c *PostgresContainer) DSN() string {
	return c.dsn
}

// NewDB starts a single postgres container shared by every test in the package binary.
func NewDB(ctx context.Context) (*PostgresContainer, error) {
	containerOnce.Do(func() {
		container, containerErr = startContainer(ctx)
	})

	return container, containerErr
}

func startContainer(ctx context.Context) (*PostgresContainer, error) {
	const testInfo = "rglstats-test"
	username, password, dbName := testInfo, testInfo, testInfo

	cont, errContainer := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       dbName,
				"POSTGRES_USER":     username,
				"POSTGRES_PASSWORD": password,
			},
			WaitingFor: wait.
				ForLog("database system is ready to accept connections").
				WithOccurrence(2),
		},
		Started: true,
	})
	if errContainer != nil {
		return nil, errors.Join(errContainer, ErrContainer)
	}

	host, errHost := cont.Host(ctx)
	if errHost != nil {
		return nil, errors.Join(errHost, ErrContainer)
	}

	port, errPort := cont.MappedPort(ctx, "5432")
	if errPort != nil {
		return nil, errors.Join(errPort, ErrContainer)
	}

	return &PostgresContainer{
		Container: cont,
		dbName:    dbName,
		user:      username,
		password:  password,
		dsn:       fmt.Sprintf("postgresql://%s:%s@%s:%s/%s", username, password, host, port.Port(), dbName),
	}, nil
}

// Database returns a connected and migrated database, skipping the test when docker is unavailable.
func Database(t *testing.T) database.Database {
	t.Helper()

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := t.Context()

	cont, errContainer := NewDB(context.WithoutCancel(ctx))
	if errContainer != nil {
		t.Skipf("postgres container unavailable: %v", errContainer)
	}

	conn := database.New(cont.DSN(), true, false)
	if errConnect := conn.Connect(ctx); errConnect != nil {
		t.Fatalf("failed to connect to test database: %v", errConnect)
	}

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}
