// ABOUTME: Root command and CLI setup for the Artificer workflow engine
// ABOUTME: Configures global flags, config loading, and the shared logger

package cli

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loferris/artificer/internal/logging"
)

// Exit codes for scripted callers
const (
	ExitOK         = 0
	ExitError      = 1
	ExitValidation = 2
	ExitNotFound   = 3
	ExitTimeout    = 4
	ExitCancelled  = 5
)

var (
	cfgFile     string
	verboseMode bool
	quietMode   bool
	jsonLogs    bool
	logger      zerolog.Logger
)

// rootCmd represents the base command when called without subcommands
var rootCmd = &cobra.Command{
	Use:   "artificer",
	Short: "A workflow execution engine for document processing pipelines",
	Long: `Artificer executes declarative workflows: directed acyclic task
graphs, pre-built pipeline templates, and stateful cyclic graphs with
human-in-the-loop pauses.

Workflows are validated, scheduled with dependency and parallelism
constraints, and can run synchronously or as background jobs with
priorities, cancellation, progress tracking, and webhook callbacks.

Examples:
  artificer run workflow.yaml --input pdf_data="$(base64 < doc.pdf)"
  artificer run pdf-to-html --inputs inputs.yaml
  artificer validate workflow.yaml
  artificer validate --graph agent-graph.yaml
  artificer serve --port 8080 --max-concurrent 4
  artificer templates list --category ingestion`,
	Version: "0.2.0",
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return exitCode(err)
	}
	return ExitOK
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.artificer.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseMode, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit JSON logs")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("json-logs", rootCmd.PersistentFlags().Lookup("json-logs"))
}

// initConfig reads the config file and ARTIFICER_* environment variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".artificer")
	}

	viper.SetEnvPrefix("ARTIFICER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

// initLogger builds the shared logger from the resolved flags
func initLogger() {
	level := "info"
	if viper.GetBool("verbose") {
		level = "debug"
	}
	if viper.GetBool("quiet") {
		level = "quiet"
	}

	if viper.GetBool("json-logs") {
		logger = logging.NewJSON(level, os.Stderr)
	} else {
		logger = logging.New(level, os.Stderr)
	}
}
