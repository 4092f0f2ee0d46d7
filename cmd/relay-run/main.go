package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/cuemby/relay/pkg/client"
	"github.com/cuemby/relay/pkg/log"
	"github.com/cuemby/relay/pkg/progressdb"
	"github.com/cuemby/relay/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "relay-run",
	Short:   "Submit a single job to a relay broker and print its result",
	Version: Version,
	RunE:    runJob,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("relay-run version %s (%s)\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.Flags().String("broker", "127.0.0.1:7330", "Broker control socket address")
	rootCmd.Flags().String("cache-dir", ".relay-cache", "Digest store and manifest cache directory")
	rootCmd.Flags().String("program", "", "Program to execute (required)")
	rootCmd.Flags().StringSlice("arg", nil, "Argument to pass to program, repeatable")
	rootCmd.Flags().StringSlice("tar-layer", nil, "Path to a tar archive to add as a layer, repeatable")
	rootCmd.Flags().Duration("timeout", 30*time.Second, "Job timeout")
	rootCmd.Flags().Bool("writable", false, "Give the job a writable root file system")
	rootCmd.Flags().String("progress-key", "", "Key to record this run's timing/outcome under (defaults to program+args)")
	_ = rootCmd.MarkFlagRequired("program")
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}

func runJob(cmd *cobra.Command, args []string) error {
	broker, _ := cmd.Flags().GetString("broker")
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	program, _ := cmd.Flags().GetString("program")
	jobArgs, _ := cmd.Flags().GetStringSlice("arg")
	tarLayers, _ := cmd.Flags().GetStringSlice("tar-layer")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	writable, _ := cmd.Flags().GetBool("writable")
	progressKey, _ := cmd.Flags().GetString("progress-key")
	if progressKey == "" {
		progressKey = strings.Join(append([]string{program}, jobArgs...), " ")
	}

	if cacheDir != "" {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return fmt.Errorf("create cache dir %s: %w", cacheDir, err)
		}
	}
	progress, err := progressdb.Open(filepath.Join(cacheDir, "progress.db"))
	if err != nil {
		return fmt.Errorf("open progress database: %w", err)
	}
	defer progress.Close()

	if prior, ok, err := progress.Get(progressKey); err == nil && ok && len(prior.Durations) > 0 {
		fmt.Printf("previous outcome: %s, last duration: %s\n", prior.Outcome, prior.Durations[len(prior.Durations)-1])
	}

	c, err := client.New(client.Options{BrokerAddr: broker, CacheDir: cacheDir})
	if err != nil {
		return fmt.Errorf("connect to broker %s: %w", broker, err)
	}

	var layers []types.Digest
	for _, path := range tarLayers {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat layer %s: %w", path, err)
		}
		digest, err := c.AddLayer(types.LayerSpec{Kind: types.LayerTar, Path: path})
		if err != nil {
			return fmt.Errorf("add layer %s: %w", path, err)
		}
		fmt.Printf("layer %s registered (%s)\n", digest, units.HumanSize(float64(info.Size())))
		layers = append(layers, digest)
	}

	spec := types.JobSpec{
		Program:                  program,
		Arguments:                jobArgs,
		Timeout:                  types.Timeout(timeout),
		EnableWritableFileSystem: writable,
		Layers:                   layers,
	}

	var result types.JobResult
	c.AddJob(spec, func(r types.JobResult) { result = r })

	c.StopAccepting()
	if err := c.WaitForOutstanding(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: shutdown: %v\n", err)
	}

	if err := recordProgress(progress, progressKey, result); err != nil {
		fmt.Fprintf(os.Stderr, "warning: record progress: %v\n", err)
	}

	return printResult(result)
}

// recordProgress persists this run's duration and outcome under key so a
// later invocation with the same --progress-key can report its history.
func recordProgress(store *progressdb.Store, key string, result types.JobResult) error {
	outcome := progressdb.OutcomeFailure
	if result.Outcome == types.OutcomeCompleted && result.Status.Exited && result.Status.Code == 0 {
		outcome = progressdb.OutcomeSuccess
	}
	metadata := map[string]string{"outcome": string(result.Outcome)}
	return store.RecordRun(key, result.Effects.Duration, outcome, metadata)
}

func printResult(result types.JobResult) error {
	fmt.Printf("outcome: %s\n", result.Outcome)
	if result.Outcome != types.OutcomeCompleted {
		if result.ErrorMessage != "" {
			fmt.Printf("error: %s\n", result.ErrorMessage)
		}
		return fmt.Errorf("job did not complete: %s", result.Outcome)
	}
	fmt.Printf("exit code: %d (exited=%v signaled=%v)\n", result.Status.Code, result.Status.Exited, result.Status.Signaled)
	fmt.Printf("duration: %s\n", result.Effects.Duration)
	printOutputStream("stdout", result.Effects.Stdout)
	printOutputStream("stderr", result.Effects.Stderr)
	return nil
}

func printOutputStream(name string, out types.JobOutputResult) {
	switch out.Kind {
	case types.OutputInline:
		fmt.Printf("%s: %s\n", name, out.Inline)
	case types.OutputTruncated:
		fmt.Printf("%s (truncated, %s dropped): %s\n", name, units.HumanSize(float64(out.TruncatedCount)), out.TruncatedFirst)
	}
}
