package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/BaSui01/methodflow/internal/database"
	"github.com/BaSui01/methodflow/registry"
)

// =============================================================================
// 📝 register 命令
// =============================================================================

func runRegister(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("register", stderr)
	methodsPath := fs.String("methods-config", "", "Methods file (YAML or JSON)")
	configPath := fs.String("config", "", "Path to config file")
	dryRun := fs.Bool("dry-run", false, "Validate only, do not write")
	logLevel := fs.String("log-level", "", "Override log level (debug, info, warn, error)")
	skipSchema := fs.Bool("skip-schema", false, "Do not create the registry table before writing")
	asJSON := fs.Bool("json", false, "Print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *methodsPath == "" {
		fmt.Fprintln(stderr, "register: --methods-config is required")
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	// 日志走 stderr，stdout 只留给报告
	cfg.Log.OutputPaths = []string{"stderr"}
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	manifest, err := registry.LoadManifest(*methodsPath)
	if err != nil {
		fmt.Fprintf(stderr, "register: %v\n", err)
		return 1
	}

	ctx := context.Background()
	var store *registry.Store
	if !*dryRun {
		pool, err := database.OpenFromConfig(cfg.Database, logger)
		if err != nil {
			fmt.Fprintf(stderr, "register: %v\n", err)
			return 1
		}
		defer pool.Close()

		store = registry.NewStore(pool.DB(), logger, registry.WithTransactor(pool))
		if !*skipSchema {
			if err := store.EnsureSchema(ctx); err != nil {
				fmt.Fprintf(stderr, "register: %v\n", err)
				return 1
			}
		}
	}

	registrar := registry.NewRegistrar(registry.NewValidator(logger), store, nil, logger)
	report := registrar.Register(ctx, manifest.Methods, *dryRun)

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(stderr, "register: %v\n", err)
			return 1
		}
	} else {
		printReport(stdout, report, *dryRun)
	}

	logger.Debug("register finished", zap.Duration("duration", report.Duration))
	if !report.OK() {
		return 1
	}
	return 0
}

// printReport 输出逐条结果与汇总
func printReport(w io.Writer, report *registry.Report, dryRun bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tSTATUS\tDETAIL")
	for _, item := range report.Items {
		name := item.Name
		if name == "" {
			name = "(unnamed)"
		}
		switch {
		case len(item.Errors) > 0:
			for i, fe := range item.Errors {
				if i == 0 {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", name, item.Status, fe)
				} else {
					fmt.Fprintf(tw, "\t\t%s\n", fe)
				}
			}
		case item.Error != "":
			fmt.Fprintf(tw, "%s\t%s\t%s\n", name, item.Status, item.Error)
		default:
			fmt.Fprintf(tw, "%s\t%s\t\n", name, item.Status)
		}
	}
	_ = tw.Flush()

	mode := ""
	if dryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "\nTotal: %d, Registered: %d, Invalid: %d, Failed: %d%s\n",
		len(report.Items), report.Registered, report.Invalid, report.Failed, mode)
}
