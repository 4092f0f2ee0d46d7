package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/cuemby/relay/pkg/log"
	"github.com/cuemby/relay/pkg/metadata"
	"github.com/cuemby/relay/pkg/pattern"
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
	Use:     "relay-metadata",
	Short:   "Initialize and fold relay directive files",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("relay-metadata version %s (%s)\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	initCmd.Flags().String("file", "directives.toml", "Directive file to create")
	showCmd.Flags().String("file", "directives.toml", "Directive file to fold")
	showCmd.Flags().String("package", "", "Package name to evaluate directive filters against")
	showCmd.Flags().String("artifact", "", "Artifact name to evaluate directive filters against")
	showCmd.Flags().String("case", "", "Test case name to evaluate directive filters against (leave empty for no bound case)")

	rootCmd.AddCommand(initCmd, showCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default directive file if one doesn't already exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()

		if err := metadata.WriteDefault(f); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Printf("wrote default directive file to %s\n", path)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Fold a directive file against a package/artifact/case triple and print the effective job spec",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		pkg, _ := cmd.Flags().GetString("package")
		artifact, _ := cmd.Flags().GetString("artifact")
		testCase, _ := cmd.Flags().GetString("case")

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()

		all, err := metadata.LoadAllMetadata(f)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		ctx := pattern.Context{Package: pkg, Artifact: artifact}
		if testCase != "" {
			ctx.Case = &pattern.CaseContext{Name: testCase}
		}

		spec, err := metadata.Fold(all.Directives, ctx)
		if err != nil {
			return fmt.Errorf("fold %s: %w", path, err)
		}

		buf, err := json.MarshalIndent(spec, "", "  ")
		if err != nil {
			return fmt.Errorf("encode effective spec: %w", err)
		}
		fmt.Println(string(buf))
		return nil
	},
}
