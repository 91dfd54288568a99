package cmd

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
)

const defaultConfigName = ".auctiond.toml"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "auctiond",
	Short: "auction bidding and closing engine",
	Long:  "auctiond accepts manual and proxy bids, closes expired auctions and pushes live updates.",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is $HOME/"+defaultConfigName+")")
}

// configPath resolves --config, falling back to ~/.auctiond.toml when it exists.
// An empty result means defaults plus environment only.
func configPath() (string, error) {
	if cfgFile != "" {
		return homedir.Expand(cfgFile)
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	path := home + string(os.PathSeparator) + defaultConfigName
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	return path, nil
}
