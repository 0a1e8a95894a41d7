package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "codeloop",
	Short: "LLM-driven coding agent with record/replay",
	Long: `codeloop sends an instruction to a language model, extracts executable
code blocks from the reply, runs them locally, feeds the results back, and
repeats until the model stops emitting code. Every lifecycle event is
recorded so a finished task can be replayed later at real or scaled speed,
and every conversational step can be rolled back.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".codeloop"))
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("CODELOOP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	if viper.GetBool("debug") {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	} else {
		slog.SetLogLoggerLevel(slog.LevelWarn)
	}
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("provider", "openai", "LLM provider (openai, anthropic, ...)")
	rootCmd.PersistentFlags().String("model", "", "model name (provider default when empty)")
	rootCmd.PersistentFlags().String("workdir", "", "base directory for task workspaces (default ~/.codeloop/tasks)")
	rootCmd.PersistentFlags().Int("max-rounds", 16, "maximum conversation rounds per instruction")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	for _, name := range []string{"provider", "model", "workdir", "max-rounds", "debug"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(taskCmd())
}

// baseWorkDir resolves the directory task workspaces live under.
func baseWorkDir() string {
	if dir := viper.GetString("workdir"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "codeloop-tasks")
	}
	return filepath.Join(home, ".codeloop", "tasks")
}
