package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/BaSui01/methodflow/internal/migration"
)

// =============================================================================
// 🗄️ migrate 命令
// =============================================================================

func runMigrate(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("migrate", stderr)
	configPath := fs.String("config", "", "Path to config file")
	dbType := fs.String("db-type", "", "Database type (postgres, mysql, sqlite)")
	dbURL := fs.String("db-url", "", "Database connection URL")
	fs.Usage = func() { fmt.Fprint(stderr, migration.CLIUsage) }

	rest, err := parseInterleaved(fs, args)
	if err != nil {
		return 2
	}
	if len(rest) == 0 || rest[0] == "help" {
		fmt.Fprint(stdout, migration.CLIUsage)
		if len(rest) == 0 {
			return 2
		}
		return 0
	}

	migrator, err := newMigrator(*configPath, *dbType, *dbURL)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create migrator: %v\n", err)
		return 1
	}
	defer migrator.Close()

	cli := migration.NewCLI(migrator)
	cli.SetOutput(stdout)
	if err := cli.Run(context.Background(), rest); err != nil {
		fmt.Fprintf(stderr, "migrate %s: %v\n", rest[0], err)
		return 1
	}
	return 0
}

// newMigrator 优先使用 --db-type/--db-url，否则从配置构建
func newMigrator(configPath, dbType, dbURL string) (migration.Migrator, error) {
	if dbType != "" && dbURL != "" {
		return migration.NewMigratorFromURL(dbType, dbURL, nil)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if dbType != "" {
		cfg.Database.Driver = dbType
	}
	return migration.NewMigratorFromConfig(cfg, initLogger(cfg.Log))
}

// parseInterleaved 允许标志出现在位置参数前后，如 "up --config c.yaml"
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}
