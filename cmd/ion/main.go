package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/iSundram/ion/internal/ai"
	"github.com/iSundram/ion/internal/config"
	"github.com/iSundram/ion/internal/core"
	"github.com/iSundram/ion/internal/formats"
	"github.com/iSundram/ion/internal/method"
	"github.com/iSundram/ion/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorOrange = "\033[38;5;208m"
	colorYellow = "\033[38;5;220m"
	colorGray   = "\033[38;5;245m"
	colorCyan   = "\033[36m"
)

// errNotAccepted makes the process exit 1 without printing an error
var errNotAccepted = errors.New("recovery not accepted")

var (
	version = core.Version
	logger  *zap.Logger
)

// options holds flag values shared by the root and batch commands
type options struct {
	verbose      bool
	configPath   string
	mode         string
	threshold    int
	workers      int
	offsetCap    int
	maxAttempts  int64
	timeout      time.Duration
	reportFormat string
	outputFile   string
	outputDir    string
	noWrite      bool
	anyHeader    bool
	formatsPath  string
	exclude      []string
	extensions   []string
	oracle       bool
	phpBinary    string
	loaderPath   string
	aiEnabled    bool
	aiModel      string
	aiToken      string
	yes          bool
}

func main() {
	err := newRootCmd(os.Stdout).Execute()
	if err == nil {
		return
	}
	if !errors.Is(err, errNotAccepted) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

// newRootCmd builds the command tree writing to out
func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "ion [file]",
		Short: "ion - heuristic source recovery for protected PHP files",
		Long: `Recover readable PHP source from protected files by searching decode
hypotheses (transforms, decompression framings, start offsets) and keeping
the candidate that looks most like PHP.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				printMainBanner(out)
				return cmd.Help()
			}
			return runRecover(cmd.Context(), out, opts, args[0])
		},
	}
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&opts.configPath, "config", "", "Config file (YAML)")
	flags.StringVar(&opts.mode, "mode", "", "Search mode: quick, normal, exhaustive (default: normal)")
	flags.IntVar(&opts.threshold, "threshold", 0, "Plausibility pass threshold, overrides format variant thresholds (default: variant, else 10)")
	flags.IntVar(&opts.workers, "workers", 0, "Number of search workers (default: CPU cores)")
	flags.IntVar(&opts.offsetCap, "offset-cap", 0, "Highest start offset scanned (default: 512)")
	flags.Int64Var(&opts.maxAttempts, "max-attempts", 0, "Decompression attempt bound")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Wall clock bound per file (e.g. 30s)")
	flags.StringVarP(&opts.reportFormat, "report", "r", "", "Report format: json, yaml, txt, md (default: console output)")
	flags.StringVarP(&opts.outputFile, "output", "o", "", "Report file path")
	flags.StringVar(&opts.outputDir, "output-dir", "", "Directory for recovered files (default: next to input)")
	flags.BoolVar(&opts.noWrite, "no-write", false, "Do not write recovered files")
	flags.BoolVar(&opts.anyHeader, "any-header", false, "Process files whose preamble matches no known format")
	flags.StringVar(&opts.formatsPath, "formats", "", "Directory with additional format YAML files")
	flags.BoolVar(&opts.oracle, "oracle", false, "Run the file under php after the search")
	flags.StringVar(&opts.phpBinary, "php", "", "PHP binary for the oracle (default: php)")
	flags.StringVar(&opts.loaderPath, "loader", "", "Loader extension passed to php with -d extension=")
	flags.BoolVar(&opts.aiEnabled, "ai", false, "Review the recovered text with an AI model")
	flags.StringVar(&opts.aiModel, "ai-model", "", "AI model: haiku, sonnet, opus (default: sonnet)")
	flags.StringVar(&opts.aiToken, "ai-token", "", "Anthropic API token (or set ANTHROPIC_API_KEY)")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "Do not ask before sending text for AI review")

	// Disable built-in help command
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddCommand(batchCmd(out, opts))
	rootCmd.AddCommand(methodsCmd(out, opts))
	rootCmd.AddCommand(formatsCmd(out, opts))

	return rootCmd
}

// initLogger builds the process logger
func initLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	// Silent logger - only errors
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.ErrorLevel),
		Encoding:         "json",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    zap.NewProductionEncoderConfig(),
	}
	return cfg.Build()
}

// loadConfig validates flags, loads configuration and applies overrides
func loadConfig(opts *options) (*config.Config, error) {
	if err := validateFlags(opts); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	opts.apply(cfg)
	return cfg, nil
}

// apply overrides configuration with explicitly set flags
func (o *options) apply(cfg *config.Config) {
	if o.mode != "" {
		cfg.Mode = o.mode
	}
	if o.threshold > 0 {
		cfg.Threshold = o.threshold
	}
	if o.workers > 0 {
		cfg.Workers = o.workers
	}
	if o.offsetCap > 0 {
		cfg.OffsetCap = o.offsetCap
	}
	if o.maxAttempts > 0 {
		cfg.MaxAttempts = o.maxAttempts
	}
	if o.timeout > 0 {
		cfg.Timeout = o.timeout
	}
	if o.reportFormat != "" {
		cfg.ReportFormat = o.reportFormat
	}
	if o.outputFile != "" {
		cfg.OutputFile = o.outputFile
	}
	if o.outputDir != "" {
		cfg.OutputDir = o.outputDir
	}
	if o.noWrite {
		cfg.WriteOutput = false
	}
	if o.anyHeader {
		cfg.RequireHeader = false
	}
	if o.formatsPath != "" {
		cfg.FormatsPath = o.formatsPath
	}
	if len(o.exclude) > 0 {
		cfg.Exclude = o.exclude
	}
	if len(o.extensions) > 0 {
		cfg.Extensions = o.extensions
	}

	// Oracle overrides
	if o.oracle {
		cfg.Oracle.Enabled = true
	}
	if o.phpBinary != "" {
		cfg.Oracle.PHPBinary = o.phpBinary
	}
	if o.loaderPath != "" {
		cfg.Oracle.LoaderPath = o.loaderPath
	}

	// AI configuration overrides
	if o.aiEnabled {
		cfg.AI.Enabled = true
	}
	if o.aiModel != "" {
		cfg.AI.Model = o.aiModel
	}
	if o.aiToken != "" {
		cfg.AI.APIToken = o.aiToken
	}
}

// newRecoverer builds the logger and recoverer for a run
func newRecoverer(out io.Writer, opts *options) (*core.Recoverer, *config.Config, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(out, "\n  %s✗ Invalid parameter:%s %s\n\n", colorRed, colorReset, err.Error())
		return nil, nil, err
	}

	logger, err = initLogger(opts.verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	recoverer, err := core.NewRecoverer(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize recoverer", zap.Error(err))
		return nil, nil, err
	}

	recoverer.SetProgressCallback(progressPrinter(out))
	if !opts.yes {
		recoverer.SetAIConfirmCallback(confirmAI(out, os.Stdin))
	}
	return recoverer, cfg, nil
}

// runRecover recovers one file and reports it
func runRecover(ctx context.Context, out io.Writer, opts *options, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	recoverer, cfg, err := newRecoverer(out, opts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	printBanner(out, path, cfg.Mode)

	batch := recoverer.NewBatch(path)
	rec, err := recoverer.Recover(ctx, path)
	batch.Add(rec)
	recoverer.FinishBatch(batch)

	if err := writeReport(out, cfg, batch); err != nil {
		return err
	}
	if err != nil || !rec.Accepted() {
		return errNotAccepted
	}
	return nil
}

// writeReport renders the batch and prints the report path if any
func writeReport(out io.Writer, cfg *config.Config, batch *report.Batch) error {
	gen, err := report.NewGenerator(cfg, logger)
	if err != nil {
		return err
	}
	gen.SetOutput(out)
	path, err := gen.Generate(batch)
	if err != nil {
		logger.Error("Failed to generate report", zap.Error(err))
		return err
	}
	if path != "" {
		fmt.Fprintf(out, "  %sReport:%s    %s%s%s\n\n", colorGray, colorReset, colorOrange, path, colorReset)
	}
	return nil
}

// batchCmd creates the batch command
func batchCmd(out io.Writer, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Recover every protected file under a directory",
		Long:  `Walk a directory and recover every file whose preamble matches a known format.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := args[0]
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			recoverer, cfg, err := newRecoverer(out, opts)
			if err != nil {
				return err
			}
			defer logger.Sync()

			printBanner(out, root, cfg.Mode)

			batch, err := recoverer.RecoverDir(ctx, root)
			if err != nil {
				logger.Error("Batch failed", zap.Error(err))
				return err
			}
			if err := writeReport(out, cfg, batch); err != nil {
				return err
			}
			if !batch.AllAccepted() {
				return errNotAccepted
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "Directories to exclude (comma-separated)")
	cmd.Flags().StringSliceVar(&opts.extensions, "extensions", nil, "File extensions to consider (comma-separated)")
	return cmd
}

// methodsCmd lists the recovery method catalog
func methodsCmd(out io.Writer, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List recovery methods",
		Long:  `Display the recovery methods in trial order with their variant counts for the selected mode.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			mode := cfg.GetSearchMode()
			catalog := method.Catalog(nil, mode)

			fmt.Fprintf(out, "%s%sRECOVERY METHODS%s %s(%s mode, trial order)%s\n\n", colorBold, colorOrange, colorReset, colorGray, cfg.Mode, colorReset)
			for _, m := range catalog {
				variants := fmt.Sprintf("%d variants", len(m.Variants))
				if len(m.Variants) == 0 {
					variants = "needs header ids"
				}
				stages := make([]string, len(m.Stages))
				for i, s := range m.Stages {
					stages[i] = string(s)
				}
				fmt.Fprintf(out, "  %s%-12s%s %-52s %s%-17s %-5s %-8s %s%s\n",
					colorBold, m.Name, colorReset, m.Description, colorGray,
					variants, m.Input, m.Plan(mode), strings.Join(stages, "+"), colorReset)
			}
			fmt.Fprintf(out, "\n  %sOrder:%s %s\n\n", colorGray, colorReset, strings.Join(method.Names(catalog), " > "))
			return nil
		},
	}
}

// formatsCmd lists the known preamble formats
func formatsCmd(out io.Writer, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List preamble format variants",
		Long:  `Display the built-in format variants and any loaded with --formats, in match order.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := formats.NewLoader(opts.formatsPath).Load()
			if err != nil {
				return fmt.Errorf("failed to load formats: %w", err)
			}

			fmt.Fprintf(out, "%s%sFORMAT VARIANTS%s %s(first match wins)%s\n\n", colorBold, colorOrange, colorReset, colorGray, colorReset)
			for _, f := range fs {
				threshold := "default"
				if f.Threshold > 0 {
					threshold = fmt.Sprintf("%d", f.Threshold)
				}
				fmt.Fprintf(out, "  %s%-16s%s %s\n", colorBold, f.Name, colorReset, f.Description)
				fmt.Fprintf(out, "      %spayload:%s %s  %sdelimiter:%s %q  %sthreshold:%s %s\n",
					colorGray, colorReset, f.PayloadMode, colorGray, colorReset, f.Delimiter, colorGray, colorReset, threshold)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

// progressPrinter renders recovery progress lines
func progressPrinter(out io.Writer) core.ProgressCallback {
	lastPhase := ""
	return func(phase string, current, total int, message string) {
		// Clear previous line if same phase
		if lastPhase == phase && (phase == "search" || phase == "batch") {
			fmt.Fprint(out, "\033[1A\033[K")
		}
		lastPhase = phase

		switch phase {
		case "inflate":
			fmt.Fprintf(out, "  %s%s%s\n", colorGray, message, colorReset)
		case "search", "batch":
			if total > 0 {
				pct := float64(current) / float64(total) * 100
				barWidth := 30
				filled := int(float64(barWidth) * float64(current) / float64(total))
				bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
				msg := message
				if len(msg) > 40 {
					msg = msg[:37] + "..."
				}
				label := "Searching:"
				if phase == "batch" {
					label = "Files:    "
				}
				fmt.Fprintf(out, "  %s%s%s [%s%s%s] %s%.1f%%%s (%d/%d) %s%s%s\n",
					colorGray, label, colorReset, colorOrange, bar, colorReset, colorOrange, pct, colorReset,
					current, total, colorGray, msg, colorReset)
			}
		case "oracle":
			fmt.Fprintf(out, "  %s%s%s\n", colorCyan, message, colorReset)
		case "ai_review":
			fmt.Fprintf(out, "\n  %s%sAI Review%s\n", colorBold, colorRed, colorReset)
		case "ai_complete":
			fmt.Fprintf(out, "  %s✓ AI complete%s %s(%d tokens used)%s\n", colorGreen, colorReset, colorGray, current, colorReset)
		case "ai_skipped":
			fmt.Fprintf(out, "  %s⊘ AI review skipped%s\n", colorGray, colorReset)
		case "ai_error":
			fmt.Fprintf(out, "  %s⚠ %s%s\n", colorYellow, message, colorReset)
		}
	}
}

// confirmAI asks before sending text to the API
func confirmAI(out io.Writer, in io.Reader) core.AIConfirmCallback {
	reader := bufio.NewReader(in)
	return func(estimate *ai.CostEstimate) bool {
		fmt.Fprintf(out, "\n  %s%sAI Review Cost Estimate%s\n", colorBold, colorRed, colorReset)
		fmt.Fprintf(out, "  %sModel:%s         %s\n", colorGray, colorReset, estimate.Model)
		fmt.Fprintf(out, "  %sText:%s          %d bytes\n", colorGray, colorReset, estimate.SourceBytes)
		fmt.Fprintf(out, "  %sEst. Tokens:%s   ~%d\n", colorGray, colorReset, estimate.EstimatedTokens)
		fmt.Fprintf(out, "  %sEst. Cost:%s     %s$%.4f%s\n\n", colorGray, colorReset, colorYellow, estimate.EstimatedCostUSD, colorReset)
		fmt.Fprintf(out, "  %sProceed with AI review? [Y/n]:%s ", colorBold, colorReset)

		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return false
		}
		input = strings.TrimSpace(strings.ToLower(input))
		return input == "" || input == "y" || input == "yes"
	}
}

// validateFlags validates CLI flag values
func validateFlags(opts *options) error {
	if opts.mode != "" {
		validModes := []string{"quick", "normal", "exhaustive"}
		if !contains(validModes, opts.mode) {
			return fmt.Errorf("--mode must be one of: %s (got: %s)", strings.Join(validModes, ", "), opts.mode)
		}
	}

	if opts.reportFormat != "" {
		validFormats := []string{"console", "json", "yaml", "yml", "txt", "text", "md", "markdown"}
		if !contains(validFormats, opts.reportFormat) {
			return fmt.Errorf("--report must be one of: %s (got: %s)", strings.Join(validFormats, ", "), opts.reportFormat)
		}
	}

	if opts.aiModel != "" {
		validModels := []string{"haiku", "sonnet", "opus"}
		if !contains(validModels, opts.aiModel) {
			return fmt.Errorf("--ai-model must be one of: %s (got: %s)", strings.Join(validModels, ", "), opts.aiModel)
		}
	}

	if opts.threshold < 0 {
		return fmt.Errorf("--threshold must not be negative (got: %d)", opts.threshold)
	}

	return nil
}

// contains checks if a slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// printMainBanner prints the main banner
func printMainBanner(out io.Writer) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s", colorOrange)
	fmt.Fprintln(out, "██ ▄████▄ ███  ██")
	fmt.Fprintln(out, "██ ██  ██ ██ ▀▄██")
	fmt.Fprintln(out, "██ ▀████▀ ██   ██")
	fmt.Fprintf(out, "%s", colorReset)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%sSource Recovery v%s%s\n", colorGray, version, colorReset)
	fmt.Fprintln(out)
}

// printBanner prints the startup banner
func printBanner(out io.Writer, path string, mode string) {
	if mode == "" {
		mode = "normal"
	}
	printMainBanner(out)
	fmt.Fprintf(out, "  %sTarget:%s    %s\n", colorGray, colorReset, path)
	fmt.Fprintf(out, "  %sMode:%s      %s\n", colorGray, colorReset, mode)
	fmt.Fprintln(out)
}
