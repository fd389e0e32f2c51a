package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/matillion/slack-export/internal/config"
	"github.com/matillion/slack-export/internal/export"
	slackmcp "github.com/matillion/slack-export/internal/mcp"
	slackclient "github.com/matillion/slack-export/internal/slack"
	"github.com/matillion/slack-export/internal/timewindow"
)

// app carries what the Before hook sets up for the commands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

// newCLIApp creates the CLI application. Without a command it serves MCP on
// stdio.
func newCLIApp() *cli.App {
	a := &app{}
	defaultWorkDir, _ := config.DefaultWorkDir()

	cliApp := &cli.App{
		Name:    "slack-export",
		Usage:   "Export Slack channel history to text and markdown transcripts",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workdir", Value: defaultWorkDir, Usage: "Directory holding config.toml, logs and exports", EnvVars: []string{"SLACK_EXPORT_HOME"}},
		},
		Before: a.setup,
		After:  a.teardown,
		Action: a.serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the export tools over MCP on stdio",
				Action: a.serve,
			},
			{
				Name:      "run",
				Usage:     "Export one channel and wait for it to finish",
				ArgsUsage: "<channel> <start> <end>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "skip-threads", Usage: "Export top-level messages only"},
					&cli.StringFlag{Name: "notify-user", Usage: "Slack user ID to send ephemeral progress messages to"},
					&cli.BoolFlag{Name: "deliver", Usage: "Upload the files to the channel when done"},
				},
				Action: a.run,
			},
		},
	}
	// errors are printed by main
	cliApp.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return cliApp
}

func (a *app) setup(c *cli.Context) error {
	workDir := c.String("workdir")
	if workDir == "" {
		return cli.Exit("no work directory: pass --workdir", 1)
	}
	if err := initWorkDir(workDir); err != nil {
		return err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := initWorkDir(cfg.LogDir, cfg.ExportDir); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = initLogger(cfg.LogLevel, cfg.LogDir)
	return nil
}

func (a *app) teardown(_ *cli.Context) error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return nil
}

func (a *app) newClient() (*slackclient.Client, error) {
	a.logger.Info("Creating Slack client", zap.String("export_dir", a.cfg.ExportDir))
	return slackclient.NewClient(a.cfg.SlackConfig(), a.logger,
		export.NewFileArtifactWriter(a.cfg.ExportDir), a.cfg.ExportOptions())
}

func (a *app) serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := a.newClient()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	server := slackmcp.CreateServer(a.logger, client, Version)
	err = server.Run(ctx, &mcp.StdioTransport{})

	a.logger.Info("Waiting for running exports to finish")
	client.Wait()

	if err != nil && ctx.Err() == nil {
		a.logger.Error("Server error", zap.Error(err))
		return err
	}
	return nil
}

func (a *app) run(c *cli.Context) error {
	if c.NArg() != 3 {
		return cli.Exit("usage: slack-export run <channel> <start> <end>", 1)
	}
	channel, start, end := c.Args().Get(0), c.Args().Get(1), c.Args().Get(2)

	if _, err := timewindow.Parse(start, end); err != nil {
		return cli.Exit(export.FailureMessage(err), 1)
	}

	client, err := a.newClient()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	ctx := c.Context
	channelID, err := client.GetChannelID(ctx, channel)
	if err != nil {
		return cli.Exit(export.FailureMessage(err), 1)
	}

	requester := client.NewRequester(channelID, c.String("notify-user"))
	var deliverer export.Deliverer
	if c.Bool("deliver") {
		deliverer = requester
	}

	result, err := client.Exporter().Run(ctx, export.Request{
		ChannelID:   channelID,
		Start:       start,
		End:         end,
		SkipThreads: c.Bool("skip-threads"),
	}, requester, deliverer)
	if err != nil {
		return cli.Exit(export.FailureMessage(err), 1)
	}
	return outputJSON(c.App.Writer, result)
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
