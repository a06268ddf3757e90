package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wippyai/wrap-client/client"
	"github.com/wippyai/wrap-client/config"
	"github.com/wippyai/wrap-client/engine"
)

// app carries state shared by subcommands. The client is built lazily so
// commands that never invoke skip engine startup.
type app struct {
	v      *viper.Viper
	log    *zap.Logger
	engine *engine.Engine
	cfg    *config.Config
	client *client.Client
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "wrap",
		Short: "Resolve and invoke wrap modules",
		Long: `wrap resolves wrap:// URIs through a client config and invokes
methods on the modules they lead to.

Flags may also be set from the environment with a WRAP_ prefix,
for example WRAP_CONFIG=./wrap.yaml.

Examples:
  wrap invoke wrap://ns/calc add --args '{"a":1,"b":2}'
  wrap resolve wrap://ns/alias
  wrap encode '{"a":1}'
  wrap interactive`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "client config file (YAML)")
	flags.BoolP("verbose", "v", false, "log resolution and invocation events")
	flags.Bool("wasi", false, "link wasi_snapshot_preview1 for guests built against it")
	flags.Uint32("memory-pages", 0, "per-instance memory limit in 64KiB pages (0 = engine default)")

	a.v.SetEnvPrefix("WRAP")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindPFlags(flags)

	root.AddCommand(
		newInvokeCmd(a),
		newResolveCmd(a),
		newEncodeCmd(),
		newInteractiveCmd(a),
	)
	return root
}

// load starts the engine and builds the client from the configured file.
func (a *app) load(cmd *cobra.Command) error {
	if a.client != nil {
		return nil
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if a.v.GetBool("verbose") {
		l, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		a.log = l
		engine.SetLogger(l)
	}

	eng, err := engine.New(ctx, &engine.Config{
		Stdout:           cmd.OutOrStdout(),
		Stderr:           cmd.ErrOrStderr(),
		MemoryLimitPages: a.v.GetUint32("memory-pages"),
		EnableWASI:       a.v.GetBool("wasi"),
	})
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	a.engine = eng

	b := config.NewBuilder()
	if path := a.v.GetString("config"); path != "" {
		b, err = config.LoadFile(path, eng)
		if err != nil {
			return err
		}
	}
	a.cfg = b.Build()

	a.client, err = client.New(a.cfg, client.WithLogger(a.log))
	return err
}

func (a *app) close(ctx context.Context) error {
	_ = a.log.Sync()
	if a.engine == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := a.engine.Close(ctx)
	a.engine = nil
	a.client = nil
	return err
}
