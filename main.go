package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/EasterCompany/dex-leveling-service/app"
	"github.com/EasterCompany/dex-leveling-service/config"
	"github.com/EasterCompany/dex-leveling-service/di"
	dexlog "github.com/EasterCompany/dex-leveling-service/log"
	"github.com/EasterCompany/dex-leveling-service/preinit"
	"github.com/EasterCompany/dex-leveling-service/utils"
	"github.com/spf13/cobra"
)

// Stamped with -ldflags "-X main.version=...".
var (
	version   string
	branch    string
	commit    string
	buildDate string
	arch      string
)

var configPath string

func main() {
	utils.SetVersion(version, branch, commit, buildDate, arch)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dex-leveling",
		Short:         "Discord leveling service: XP, tier roles and leaderboards",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runService,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to leveling.json (default ~/Dexter/config/leveling.json)")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Connect to Discord and start granting experience",
			Args:  cobra.NoArgs,
			RunE:  runService,
		},
		&cobra.Command{
			Use:   "verify-config",
			Short: "Check the configuration file without connecting",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s--- Dexter Leveling Config Verifier ---%s\n", config.ColorBlue, config.ColorReset)
				if !config.Verify(out, configPath) {
					fmt.Fprintf(out, "%s❌ Some issues were found in the configuration.%s\n", config.ColorRed, config.ColorReset)
					return config.ErrVerifyFailed
				}
				fmt.Fprintf(out, "%s✅ The configuration seems correct.%s\n", config.ColorGreen, config.ColorReset)
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version of the service",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				v := utils.GetVersion()
				fmt.Fprintf(cmd.OutOrStdout(), "version=%s branch=%s commit=%s built=%s arch=%s\n",
					v.Version, v.Branch, v.Commit, v.BuildDate, v.Arch)
			},
		},
	)
	return root
}

func runService(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	bootLogger := preinit.NewLogger()

	cfg, err := config.Load(config.NewViper(), configPath)
	if err != nil {
		bootLogger.Error("fatal error loading config", dexlog.Err(err))
		return err
	}
	level, err := dexlog.ParseLevel(cfg.LogLevel)
	if err != nil {
		bootLogger.Warn("falling back to info logging", dexlog.Err(err))
	}

	mirror := dexlog.NewDiscordMirror()
	logger := dexlog.New(os.Stderr, level, mirror)
	dexlog.RouteDiscordgo(logger)

	container, err := di.NewContainer(ctx, cfg, logger, mirror)
	if err != nil {
		logger.Error("failed to build service", dexlog.Err(err))
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Warn("error closing store", dexlog.Err(err))
		}
	}()

	if err := app.New(container).Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("service stopped", dexlog.Err(err))
		return err
	}
	logger.Info("service stopped")
	return nil
}
