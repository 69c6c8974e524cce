package main

import (
	"context"
	"fmt"

	content "github.com/goliatone/go-content"
	"github.com/goliatone/go-content/internal/config"
	"github.com/goliatone/go-content/pkg/activity"
	"github.com/goliatone/go-content/pkg/rules"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	configPath string
	envFiles   []string
	driver     string
	path       string
	scope      string
	owner      string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "contentctl",
		Short:         "Edit and serve the site content document",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to a YAML config file")
	flags.StringSliceVar(&a.envFiles, "env-file", nil, "Env files to load before reading the config")
	flags.StringVar(&a.driver, "driver", "", "Storage driver: memory, file or sqlite")
	flags.StringVar(&a.path, "path", "", "Storage directory (file) or DSN (sqlite)")
	flags.StringVar(&a.scope, "scope", "", "Storage scope: site, tenant, team or user")
	flags.StringVar(&a.owner, "owner", "", "Owner of a tenant, team or user scope")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level")

	root.AddCommand(
		newServeCmd(a),
		newShowCmd(a),
		newGetCmd(a),
		newSetCmd(a),
		newAddCmd(a),
		newRemoveCmd(a),
		newRemoveKeyCmd(a),
		newAddDetailCmd(a),
		newResetCmd(a),
		newSchemaCmd(),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.LoadConfig(a.configPath, a.envFiles...)
	if err != nil {
		return err
	}
	if a.driver != "" {
		cfg.Storage.Driver = a.driver
	}
	if a.path != "" {
		cfg.Storage.Path = a.path
	}
	if a.scope != "" {
		cfg.Storage.Scope = a.scope
	}
	if a.owner != "" {
		cfg.Storage.Owner = a.owner
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := newZapLogger(cfg)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	return nil
}

// openEditor loads the stored document into a new editor. The returned
// close function releases the store.
func (a *app) openEditor(ctx context.Context) (*content.Editor, func(), error) {
	store, closeStore, err := a.cfg.OpenStore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	logger := zapLogger{log: a.log}
	gateway, err := content.NewGateway(store,
		content.WithRef(a.cfg.Ref()),
		content.WithGatewayLogger(logger),
	)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	var ids content.IDGenerator = content.NewClockIDs()
	if a.cfg.IDs == config.IDsUUID {
		ids = content.UUIDIDs{}
	}
	emitter := activity.NewEmitter(activity.Hooks{activityLog{log: a.log}}, activity.Config{
		Enabled: a.cfg.Activity.Enabled,
		Channel: a.cfg.Activity.Channel,
		ActorID: a.cfg.Activity.ActorID,
	})
	validator := rules.NewValidator(rules.WithLogger(evaluatorLogger(a.log)))

	editor, err := content.NewEditor(ctx,
		content.WithGateway(gateway),
		content.WithIDGenerator(ids),
		content.WithActivity(emitter),
		content.WithLogger(logger),
		content.WithSessionOptions(content.WithValidator(validator)),
	)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return editor, func() {
		if err := closeStore(); err != nil {
			a.log.Warn("close store", zap.Error(err))
		}
	}, nil
}

// withEditor runs fn against a freshly loaded editor.
func (a *app) withEditor(cmd *cobra.Command, fn func(ctx context.Context, editor *content.Editor) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	editor, done, err := a.openEditor(ctx)
	if err != nil {
		return err
	}
	defer done()
	return fn(ctx, editor)
}
