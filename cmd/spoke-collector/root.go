package main

import (
	"fmt"

	"github.com/Sternrassler/spoke-connector/internal/version"
	"github.com/Sternrassler/spoke-connector/pkg/config"
	"github.com/Sternrassler/spoke-connector/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	envFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "spoke-collector",
		Short: "Collect atSpoke helpdesk data as graph entities and relationships",
		Long: `spoke-collector pulls the account, users, teams, webhooks, request types
and requests of an atSpoke workspace and maps them to typed entities and
HAS relationships.

Requests are synced incrementally: paging stops once results fall behind the
last successful run, or 14 days back on a first run.

Exit status is 1 when the run could not start and 2 when some steps failed;
collect still writes what it gathered in the second case.

Example:
  SPOKE_API_KEY=... spoke-collector collect --output graph.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.Version = version.Short()
	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file read before the environment")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Bool("pretty", false, "human readable logs")
	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.pretty", flags.Lookup("pretty"))

	root.AddCommand(
		newCollectCmd(a),
		newValidateCmd(a),
		newHistoryCmd(a),
		newVersionCmd(),
	)
	return root
}

// load reads and validates configuration and sets up logging.
func (a *app) load() (*config.Config, error) {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg, err := config.Load(a.v, a.envFile)
	if err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(cfg.Logging.Level)
	logCfg.Pretty = cfg.Logging.Pretty
	logging.Setup(logCfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
