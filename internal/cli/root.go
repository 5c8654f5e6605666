package cli

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/nafstore/internal/backend"
	"github.com/OFFIS-RIT/nafstore/internal/config"
	"github.com/OFFIS-RIT/nafstore/pkg/assembler"
	"github.com/OFFIS-RIT/nafstore/pkg/logger"
	"github.com/OFFIS-RIT/nafstore/pkg/logger/console"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// env carries the loaded configuration to the subcommands.
type env struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

// NewRootCmd builds the nafctl command tree.
func NewRootCmd() *cobra.Command {
	e := &env{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "nafctl",
		Short: "nafctl - store and load layered NAF annotations",
		Long: `nafctl manages a layered annotation store.

Documents are exchanged as JSON document records. Every annotation layer is
stored as its own record, addressed by session, document and optionally
paragraph and sentence.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(e.v, e.cfgFile)
			if err != nil {
				return err
			}
			e.cfg = cfg
			logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
				Debug:  cfg.Debug,
				Format: cfg.LogFormat,
				Writer: cmd.ErrOrStderr(),
			}))
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&e.cfgFile, "config", "", "config file (default: $HOME/.nafstore/config.yaml)")
	flags.BoolP("verbose", "v", false, "debug logging")
	flags.String("backend", "", "store backend (postgres, bolt, memory)")
	flags.String("database-url", "", "postgres connection url")
	flags.String("bolt-path", "", "bolt database file")
	flags.Bool("append-only", false, "reject a second write of the same layer scope")

	_ = e.v.BindPFlag("debug", flags.Lookup("verbose"))
	_ = e.v.BindPFlag("store.backend", flags.Lookup("backend"))
	_ = e.v.BindPFlag("store.database_url", flags.Lookup("database-url"))
	_ = e.v.BindPFlag("store.bolt_path", flags.Lookup("bolt-path"))
	_ = e.v.BindPFlag("store.append_only", flags.Lookup("append-only"))

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(e),
		newInitCmd(e),
		newStoreCmd(e),
		newLoadCmd(e),
		newRemoveCmd(e),
		newDropCmd(e),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nafctl %s\n", Version)
		},
	}
}

// open opens the configured store and an assembler over it. The caller
// closes the backend.
func (e *env) open(ctx context.Context) (*assembler.Assembler, *backend.Backend, error) {
	be, err := backend.Open(ctx, e.cfg.Store, e.cfg.Worker.LockTTL, nil)
	if err != nil {
		return nil, nil, err
	}
	opts := []assembler.Option{assembler.WithDefaults(e.cfg.NAF.Lang, e.cfg.NAF.Version)}
	if e.cfg.Store.AppendOnly {
		opts = append(opts, assembler.WithAppendOnly())
	}
	return assembler.New(be.Store, opts...), be, nil
}
