package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/riskibarqy/peg-league/internal/config"
	"github.com/riskibarqy/peg-league/internal/platform/logging"
)

var logger = logging.NewJSON(logging.LevelInfo).Named("migration")

// command runs one migration subcommand with the arguments after its name.
type command struct {
	usage string
	run   func(m *migrate.Migrate, args []string) error
}

var commands = map[string]command{
	"up": {usage: "up", run: func(m *migrate.Migrate, _ []string) error {
		return applied(m.Up(), "migrations applied")
	}},
	"down": {usage: "down [steps=1]", run: func(m *migrate.Migrate, args []string) error {
		steps, err := parseSteps(args)
		if err != nil {
			return err
		}
		return applied(m.Steps(-steps), "migrations rolled back", "steps", steps)
	}},
	"goto": {usage: "goto <version>", run: func(m *migrate.Migrate, args []string) error {
		if len(args) == 0 {
			return errors.New("goto requires a target version")
		}
		target, err := parseTarget(args[0])
		if err != nil {
			return err
		}
		return applied(m.Migrate(target), "migrated", "version", target)
	}},
	"force": {usage: "force <version>", run: func(m *migrate.Migrate, args []string) error {
		if len(args) == 0 {
			return errors.New("force requires a version")
		}
		version, err := parseVersion(args[0])
		if err != nil {
			return err
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force version %d: %w", version, err)
		}
		logger.Info("version forced", "version", version)
		return nil
	}},
	"version": {usage: "version", run: func(m *migrate.Migrate, _ []string) error {
		version, dirty, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			fmt.Println("version: none")
			fmt.Println("dirty: false")
			return nil
		case err != nil:
			return fmt.Errorf("read version: %w", err)
		}
		fmt.Printf("version: %d\ndirty: %t\n", version, dirty)
		return nil
	}},
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}
	cmd, ok := commands[strings.ToLower(strings.TrimSpace(os.Args[1]))]
	if !ok {
		printUsage()
		os.Exit(2)
	}

	dbURL, err := databaseURL()
	if err != nil {
		fatal("resolve database url", "error", err)
	}
	migrationsDir, err := resolveMigrationsDir()
	if err != nil {
		fatal("resolve migrations dir", "error", err)
	}

	sourceURL := "file://" + filepath.ToSlash(migrationsDir)
	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		fatal("create migrator", "error", err)
	}

	runErr := cmd.run(m, os.Args[2:])
	closeMigrator(m)
	if runErr != nil {
		fatal("migration failed", "command", os.Args[1], "source", sourceURL, "error", runErr)
	}
}

func databaseURL() (string, error) {
	raw := strings.TrimSpace(os.Getenv("DB_URL"))
	if raw == "" {
		return "", errors.New("DB_URL is required")
	}

	disableBinary := true
	if v := strings.TrimSpace(os.Getenv("DB_DISABLE_PREPARED_BINARY_RESULT")); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return "", fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
		}
		disableBinary = parsed
	}
	return config.NormalizeDBURL(raw, disableBinary), nil
}

// applied treats ErrNoChange as success and logs msg when anything ran.
func applied(err error, msg string, args ...any) error {
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("no migration changes")
		return nil
	case err != nil:
		return err
	}
	logger.Info(msg, args...)
	return nil
}

func fatal(msg string, args ...any) {
	logger.Error(msg, args...)
	_ = logger.Sync()
	os.Exit(1)
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	steps, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid down steps %q: %w", args[0], err)
	}
	if steps <= 0 {
		return 0, errors.New("down steps must be > 0")
	}
	return steps, nil
}

func parseVersion(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	if value < 0 {
		return 0, errors.New("version must be >= 0")
	}
	return value, nil
}

func parseTarget(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 0)
	if err != nil {
		return 0, fmt.Errorf("invalid target version %q: %w", raw, err)
	}
	return uint(value), nil
}

func closeMigrator(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		logger.Warn("close migration source", "error", srcErr)
	}
	if dbErr != nil {
		logger.Warn("close migration db", "error", dbErr)
	}
}

// resolveMigrationsDir returns the first existing directory among
// MIGRATIONS_DIR, the repo-relative path and the container path.
func resolveMigrationsDir() (string, error) {
	candidates := []string{os.Getenv("MIGRATIONS_DIR"), "./db/migrations", "/app/db/migrations"}
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			return abs, nil
		}
	}
	return "", fmt.Errorf("no migrations directory in %s", strings.Join(candidates[1:], ", "))
}

func printUsage() {
	name := filepath.Base(os.Args[0])
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)

	fmt.Fprintf(os.Stderr, "usage: %s <command> [args]\n", name)
	for _, n := range names {
		fmt.Fprintf(os.Stderr, "  %s %s\n", name, commands[n].usage)
	}
}
