package tcpostgres

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const defaultImage = "postgres:16-alpine"

// PostgresContainer is a reusable postgres test container
type PostgresContainer struct {
	testcontainers.Container
	user     string
	password string
	dbName   string
	port     nat.Port
}

type containerConfig struct {
	req      testcontainers.ContainerRequest
	user     string
	password string
	dbName   string
}

type PostgresContainerOption func(cfg *containerConfig)

func WithImage(image string) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.req.Image = image
	}
}

func WithName(containerName string) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.req.Name = containerName
	}
}

func WithCredentials(user, password, dbName string) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.user = user
		cfg.password = password
		cfg.dbName = dbName
	}
}

func WithStartupTimeout(d time.Duration) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.req.WaitingFor = wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(d)
	}
}

// SetupPostgres starts (or reuses) a postgres container.
// fsync is disabled, the data is thrown away anyway.
func SetupPostgres(ctx context.Context, opts ...PostgresContainerOption) (
	*PostgresContainer, error,
) {
	port := nat.Port("5432/tcp")
	cfg := &containerConfig{
		req: testcontainers.ContainerRequest{
			Image:        defaultImage,
			ExposedPorts: []string{string(port)},
			Cmd:          []string{"postgres", "-c", "fsync=off"},
		},
		user:     "postgres",
		password: "password",
		dbName:   "postgres",
	}
	WithStartupTimeout(30 * time.Second)(cfg)
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.req.Env = map[string]string{
		"POSTGRES_USER":     cfg.user,
		"POSTGRES_PASSWORD": cfg.password,
		"POSTGRES_DB":       cfg.dbName,
	}

	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: cfg.req,
			Started:          true,
			Reuse:            cfg.req.Name != "",
		})
	if err != nil {
		return nil, err
	}
	return &PostgresContainer{
		Container: container,
		user:      cfg.user,
		password:  cfg.password,
		dbName:    cfg.dbName,
		port:      port,
	}, nil
}

// ConnectionURL returns the url to reach the database from the host
func (c *PostgresContainer) ConnectionURL(ctx context.Context) (string, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return "", err
	}
	mapped, err := c.MappedPort(ctx, c.port)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s",
		c.user, c.password, host, mapped.Port(), c.dbName), nil
}
