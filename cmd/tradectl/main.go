// Package main provides tradectl, a CLI for inspecting and administering
// the persisted state of a running (or previously run) retracement
// engine, independent of the server process.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bingolead/retracement-engine/internal/config"
	"github.com/bingolead/retracement-engine/internal/persistence"
)

var (
	configFile string
	assumeYes  bool
)

func requireNoError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}

func openStore() *persistence.Store {
	cfg, err := config.Load(configFile)
	requireNoError(err)
	store, err := persistence.Open(cfg.Persistence.DSN, zap.NewNop())
	requireNoError(err)
	return store
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv("CONFIG_FILE"), "Path to YAML config file")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(verifyCmd)

	deleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(deleteCmd)

	resetAllCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(resetAllCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tradectl",
	Short: "tradectl inspects and administers persisted retracement-strategy state",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every strategy with saved state",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()

		names, err := store.ListNames(context.Background())
		requireNoError(err)
		if len(names) == 0 {
			fmt.Println("no saved strategies")
			return
		}
		for _, name := range names {
			fmt.Println(name)
		}
	},
}

var showCmd = &cobra.Command{
	Use:   "show <strategy>",
	Short: "Print a strategy's saved state as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()

		state, err := store.Load(context.Background(), args[0])
		requireNoError(err)
		if state == nil {
			fmt.Fprintf(os.Stderr, "error: no saved state for strategy %q\n", args[0])
			os.Exit(1)
		}
		printJSON(state)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <strategy>",
	Short: "Check a strategy's saved state for internal inconsistencies",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()

		problems, err := store.Verify(context.Background(), args[0])
		requireNoError(err)
		if len(problems) == 0 {
			fmt.Printf("%s: healthy\n", args[0])
			return
		}
		fmt.Printf("%s: %d problem(s) found\n", args[0], len(problems))
		for _, p := range problems {
			fmt.Println(" -", p)
		}
		os.Exit(1)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <strategy>",
	Short: "Delete a strategy's saved state",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !assumeYes && !confirm(fmt.Sprintf("delete all saved state for %q?", args[0])) {
			fmt.Println("aborted")
			return
		}
		store := openStore()
		defer store.Close()

		requireNoError(store.Delete(context.Background(), args[0]))
		fmt.Printf("deleted %s\n", args[0])
	},
}

var resetAllCmd = &cobra.Command{
	Use:   "reset-all",
	Short: "Delete every strategy's saved state",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if !assumeYes && !confirm("delete ALL saved strategy state?") {
			fmt.Println("aborted")
			return
		}
		store := openStore()
		defer store.Close()

		requireNoError(store.ResetAll(context.Background()))
		fmt.Println("reset all saved state")
	},
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	var response string
	fmt.Scanln(&response)
	return response == "y" || response == "Y"
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	requireNoError(enc.Encode(v))
}
