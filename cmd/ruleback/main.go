package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/quantforge/ruleback/internal/backtest"
	"github.com/quantforge/ruleback/internal/datasource"
	"github.com/quantforge/ruleback/internal/logger"
	"github.com/quantforge/ruleback/internal/types"
)

func main() {
	cmd := &cli.Command{
		Name:  "ruleback",
		Usage: "Backtest rule-based trading strategies over daily bars",
		Commands: []*cli.Command{
			runCommand(),
			importCommand(),
			schemaCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a strategy over a universe of instruments",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "strategy",
				Aliases:  []string{"s"},
				Usage:    "Path to the strategy YAML file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the backtest config YAML file (defaults apply when omitted)",
			},
			&cli.StringFlag{
				Name:    "csv",
				Usage:   "Glob of CSV bar files, e.g. './data/*.csv'",
				Sources: cli.EnvVars("RULEBACK_CSV"),
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "Path to a DuckDB bar database",
				Sources: cli.EnvVars("RULEBACK_DB"),
			},
			&cli.StringFlag{
				Name:  "exchange",
				Usage: "Exchange the instruments trade on",
			},
			&cli.StringSliceFlag{
				Name:  "codes",
				Usage: "Instrument codes to include (defaults to every code in the source)",
			},
			&cli.TimestampFlag{
				Name:  "start",
				Usage: "Start date in `YYYY-MM-DD` format",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:  "end",
				Usage: "End date in `YYYY-MM-DD` format",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Path of the result YAML file",
				Value:   "result.yaml",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress the progress bar",
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	config, err := loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	if start := cmd.Timestamp("start"); !start.IsZero() {
		config.StartTime = optional.Some(start)
	}

	if end := cmd.Timestamp("end"); !end.IsZero() {
		config.EndTime = optional.Some(end)
	}

	strategy, err := types.LoadStrategyFile(cmd.String("strategy"))
	if err != nil {
		return fmt.Errorf("failed to load strategy: %w", err)
	}

	source, err := openSource(cmd, log)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	exchange := cmd.String("exchange")

	codes := cmd.StringSlice("codes")
	if len(codes) == 0 {
		codes, err = source.ListSymbols(ctx, exchange)
		if err != nil {
			return fmt.Errorf("failed to list symbols: %w", err)
		}
	}

	var start, end time.Time
	if config.StartTime.IsSome() {
		start = config.StartTime.Unwrap()
	}

	if config.EndTime.IsSome() {
		end = config.EndTime.Unwrap()
	}

	entries, err := datasource.LoadUniverse(ctx, source, exchange, codes, start, end, config.MinBars, log)
	if err != nil {
		return fmt.Errorf("failed to load universe: %w", err)
	}

	universe := make([]*backtest.CodeData, 0, len(entries))

	for _, entry := range entries {
		data, err := backtest.NewCodeData(entry.Code, entry.Exchange, entry.Bars)
		if err != nil {
			return fmt.Errorf("failed to index bars for %s: %w", entry.Code, err)
		}

		universe = append(universe, data)
	}

	engine, err := backtest.NewEngine(config, log, nil)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	onDate := optional.None[backtest.OnDateCallback]()

	if !cmd.Bool("quiet") {
		var bar *progressbar.ProgressBar

		onDate = optional.Some[backtest.OnDateCallback](func(current, total int) {
			if bar == nil {
				bar = progressbar.Default(int64(total))
				bar.Describe(fmt.Sprintf("Running %s", strategy.Name))
			}

			_ = bar.Set(current)
		})
	}

	result, err := engine.Run(*strategy, universe, onDate)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	output := cmd.String("output")
	if err := types.WriteResult(output, result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	fmt.Printf("wrote %s: %d trades, total return %.2f%%\n",
		output, result.Aggregate.TotalTrades, result.Aggregate.TotalReturn*100)

	return nil
}

// openSource picks the bar source from the run flags: a DuckDB database
// when --db is set, otherwise an in-memory source filled from the --csv glob.
func openSource(cmd *cli.Command, log *logger.Logger) (datasource.BarSource, error) {
	if db := cmd.String("db"); db != "" {
		return datasource.NewDuckDBSource(db, log)
	}

	glob := cmd.String("csv")
	if glob == "" {
		return nil, fmt.Errorf("either --db or --csv is required")
	}

	files, err := filepath.Glob(glob)
	if err != nil {
		return nil, fmt.Errorf("bad csv glob: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files match %s", glob)
	}

	source := datasource.NewMemorySource()

	for _, file := range files {
		bars, err := datasource.LoadBarsCSV(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}

		if len(bars) == 0 {
			continue
		}

		source.Add(bars[0].Code, bars)
	}

	return source, nil
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import CSV bar files into a DuckDB database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "csv",
				Usage:    "Glob of CSV bar files to import",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "db",
				Usage:    "Path of the DuckDB database to write",
				Required: true,
			},
		},
		Action: importAction,
	}
}

func importAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	files, err := filepath.Glob(cmd.String("csv"))
	if err != nil {
		return fmt.Errorf("bad csv glob: %w", err)
	}

	if len(files) == 0 {
		return fmt.Errorf("no files match %s", cmd.String("csv"))
	}

	store, err := datasource.NewDuckDBSource(cmd.String("db"), log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	total := 0

	for _, file := range files {
		bars, err := datasource.LoadBarsCSV(file)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}

		if err := store.InsertBars(ctx, bars); err != nil {
			return fmt.Errorf("failed to import %s: %w", file, err)
		}

		total += len(bars)
	}

	fmt.Printf("imported %d bars from %d files\n", total, len(files))

	return nil
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the backtest config",
		Action: func(_ context.Context, _ *cli.Command) error {
			config := backtest.DefaultConfig()

			schema, err := config.GenerateSchemaJSON()
			if err != nil {
				return fmt.Errorf("failed to generate schema: %w", err)
			}

			fmt.Println(schema)

			return nil
		},
	}
}

func loadConfig(path string) (backtest.Config, error) {
	if path == "" {
		return backtest.DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return backtest.Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	config, err := backtest.ParseConfig(data)
	if err != nil {
		return backtest.Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}
