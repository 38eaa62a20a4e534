package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wecube/server/internal/config"
)

var v = viper.New()

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "wecube-server",
	Short:        "Runs the WeCube marketplace messaging server.",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}
		if err := initLog(cfg.LogVerbosity, cfg.LogFile); err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

// init loads .env (if present), registers the configuration defaults and
// binds the command-line flags over them.
func init() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	config.SetDefaults(v)

	flags := rootCmd.Flags()
	flags.String("port", "", "HTTP listen port (SERVER_PORT)")
	flags.String("store", "", "Store driver: postgres or sqlite (STORE_DRIVER)")
	flags.String("sqlite-path", "", "SQLite database file (SQLITE_PATH)")
	flags.UintP("verbose", "v", 0, "Log verbosity: 0 info, 1 debug, 2 trace (LOG_VERBOSITY)")
	flags.StringP("log", "l", "", "Log file path; empty or - logs to stdout (LOG_FILE)")
	flags.Bool("push", true, "Send Expo push notifications (PUSH_ENABLED)")

	bind := map[string]string{
		"SERVER_PORT":   "port",
		"STORE_DRIVER":  "store",
		"SQLITE_PATH":   "sqlite-path",
		"LOG_VERBOSITY": "verbose",
		"LOG_FILE":      "log",
		"PUSH_ENABLED":  "push",
	}
	for key, flag := range bind {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}
