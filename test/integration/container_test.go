//go:build integration

package integration

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/healthsync/healthsync/internal/platform/db"
)

const (
	postgresImage = "postgres:16-alpine"
	readyTimeout  = 30 * time.Second
)

// postgresContainer is a throwaway PostgreSQL started with the Docker CLI.
// Docker picks the host port so parallel runs do not collide.
type postgresContainer struct {
	id  string
	dsn string
}

func startPostgresContainer(ctx context.Context) (string, func(), error) {
	pc := &postgresContainer{}
	if err := pc.run(ctx); err != nil {
		return "", nil, err
	}
	if err := pc.waitReady(ctx); err != nil {
		pc.stop()
		return "", nil, err
	}
	return pc.dsn, pc.stop, nil
}

func (pc *postgresContainer) run(ctx context.Context) error {
	out, err := docker(ctx, "run", "-d", "--rm",
		"--label", "healthsync.integration=true",
		"-p", "127.0.0.1::5432",
		"-e", "POSTGRES_USER=healthsync",
		"-e", "POSTGRES_PASSWORD=healthsync",
		"-e", "POSTGRES_DB=healthsync_test",
		postgresImage,
	)
	if err != nil {
		return fmt.Errorf("docker run: %w", err)
	}
	pc.id = out

	addr, err := docker(ctx, "port", pc.id, "5432/tcp")
	if err != nil {
		pc.stop()
		return fmt.Errorf("docker port: %w", err)
	}
	// Multiple bindings come back one per line; the first is ours.
	addr = strings.SplitN(addr, "\n", 2)[0]
	pc.dsn = fmt.Sprintf("postgres://healthsync:healthsync@%s/healthsync_test?sslmode=disable", addr)
	return nil
}

// waitReady retries until db.NewPool, which pings, succeeds.
func (pc *postgresContainer) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var lastErr error
	for {
		pool, err := db.NewPool(ctx, pc.dsn, db.PoolOptions{MaxConns: 1})
		if err == nil {
			pool.Close()
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres not ready after %v: %w", readyTimeout, lastErr)
		case <-ticker.C:
		}
	}
}

func (pc *postgresContainer) stop() {
	if pc.id == "" {
		return
	}
	_, _ = docker(context.Background(), "rm", "-f", pc.id)
}

func docker(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "docker", args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}
