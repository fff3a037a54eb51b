package schemagraph

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/soundprediction/schemagraph/pkg/server/handlers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "schemagraph",
		Short: "schemagraph: schema retrieval for natural language questions",
		Long: `schemagraph finds the tables, columns, business entities and query patterns
that answer a natural language question. It searches a schema knowledge graph
level by level, reranks the candidates and hydrates each table with its full
context.

Run it as an HTTP server, an MCP tool server, or as a one-shot search.`,
		SilenceUsage: true,
	}
)

// Execute runs the command line.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.Version = handlers.Version

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.schemagraph.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".schemagraph")
	}

	// SCHEMAGRAPH_LOG_LEVEL overrides log.level, and so on.
	viper.SetEnvPrefix("schemagraph")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	case cfgFile != "" || !errors.As(err, &notFound):
		fmt.Fprintln(os.Stderr, "Ignoring config file:", err)
	}
}
