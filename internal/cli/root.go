package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yungbote/identity-backend/internal/app"
	"github.com/yungbote/identity-backend/internal/platform/logger"
)

// ErrViolations is returned by check when the store breaks a cluster rule.
var ErrViolations = errors.New("integrity violations found")

type cli struct {
	version    string
	configFile string
	noColor    bool

	v   *viper.Viper
	cfg app.Config
	log *logger.Logger
}

// NewRootCommand builds the identity command tree.
func NewRootCommand(version string) *cobra.Command {
	c := &cli{version: version}
	root := &cobra.Command{
		Use:               "identity",
		Short:             "Contact identity reconciliation service",
		Version:           version,
		PersistentPreRunE: c.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "YAML config file")
	root.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		c.serveCommand(),
		c.migrateCommand(),
		c.identifyCommand(),
		c.checkCommand(),
	)
	return root
}

// Execute runs the command tree against args.
func Execute(ctx context.Context, version string, args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand(version)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if c.noColor {
		color.NoColor = true
	}
	c.v = app.NewViper()
	cfg, err := app.LoadConfig(c.v, c.configFile)
	if err != nil {
		return err
	}
	c.cfg = cfg

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	c.log = log
	return nil
}

func (c *cli) newApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, c.log, c.cfg, c.version)
}
