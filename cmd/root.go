package cmd

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/illarion/filevault/internal/config"
	"github.com/illarion/filevault/internal/core"
)

// options carries the resolved configuration from the root command to the
// subcommands.
type options struct {
	cfg     config.Config
	root    string
	timeout time.Duration
	kdf     string
	verbose bool
}

// NewRootCommand builds the filevault command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "filevault",
		Short:         "Encrypted file store with safe concurrent mutation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	defaults := config.DefaultConfig()
	root.PersistentFlags().StringVar(&opts.root, "root", defaults.Root, "store directory (env "+config.EnvRoot+")")
	root.PersistentFlags().DurationVar(&opts.timeout, "lock-timeout", defaults.LockTimeout, "wait for a busy file before giving up (env "+config.EnvLockTimeout+")")
	root.PersistentFlags().StringVar(&opts.kdf, "kdf", defaults.KDF, "key derivation for new encrypted files: pbkdf2 or scrypt (env "+config.EnvKDF+")")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log store operations to stderr")

	root.AddCommand(
		createCmd(opts),
		uploadCmd(opts),
		renameCmd(opts),
		rmCmd(opts),
		searchCmd(opts),
		catCmd(opts),
		statCmd(opts),
		rekeyCmd(opts),
		diffCmd(opts),
		logCmd(opts),
		statusCmd(opts),
		compactCmd(opts),
		keyringCmd(opts),
	)
	return root
}

// Execute runs the CLI with ctx and args (without the program name).
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// resolve layers defaults, FILEVAULT_* variables and explicit flags, in
// that order.
func (o *options) resolve(cmd *cobra.Command) error {
	cfg, err := config.FromEnv(config.DefaultConfig())
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Root = o.root
	}
	if flags.Changed("lock-timeout") {
		cfg.LockTimeout = o.timeout
	}
	if flags.Changed("kdf") {
		cfg.KDF = o.kdf
	}
	if o.verbose {
		cfg.LogLevel = zerolog.LevelDebugValue
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

// openStore opens the configured store. The caller must Close it.
func (o *options) openStore(cmd *cobra.Command) (*core.Store, error) {
	params, err := o.cfg.KDFParams()
	if err != nil {
		return nil, err
	}
	level, err := o.cfg.Level()
	if err != nil {
		return nil, err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	return core.Open(o.cfg.Root,
		core.WithLockTimeout(o.cfg.LockTimeout),
		core.WithKDF(params),
		core.WithLogger(logger),
	)
}
