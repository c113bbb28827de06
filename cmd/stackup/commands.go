package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/stackup"
	"github.com/loykin/stackup/internal/logger"
)

const defaultAPIURL = "http://127.0.0.1:8080/api"

func buildRoot() *cobra.Command {
	global := &GlobalFlags{}
	upFlags := &UpFlags{}
	apiFlags := &APIFlags{}
	selector := &SelectorFlags{}

	root := &cobra.Command{
		Use:   "stackup",
		Short: "Dependency-ordered process supervisor for developer workstations",
		Long: "stackup launches the long-running commands declared in a config file,\n" +
			"grouped into dependency clusters, and starts each group only once every\n" +
			"group it depends on has reported a successful startup.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&global.ConfigPath, "config", "c", "stackup.yaml", "path to the JSON or YAML config file")
	root.PersistentFlags().StringVar(&global.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&global.NoColor, "no-color", false, "disable ANSI colors in supervisor logs")

	up := &cobra.Command{
		Use:   "up [group...]",
		Short: "Start groups and supervise them until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(global, upFlags, args)
		},
	}
	up.Flags().StringVar(&upFlags.Serve, "serve", "", "also expose the control API on this address (e.g. :8080)")
	up.Flags().StringVar(&upFlags.APIBase, "api-base", "/api", "base path of the control API")
	up.Flags().StringVar(&upFlags.MetricsAddr, "metrics", "", "expose Prometheus /metrics on this address")
	up.Flags().BoolVar(&upFlags.Watch, "watch", false, "watch the config file and flag pending changes")
	root.AddCommand(up)

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Parse the config and prove the dependency graph is sound",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := stackup.LoadConfig(global.ConfigPath)
			if err != nil {
				return err
			}
			fmt.Printf("configuration is valid: %d services, %d groups\n", len(cfg.Services), len(cfg.Groups))
			return nil
		},
	}
	root.AddCommand(validate)

	status := &cobra.Command{
		Use:   "status [service]",
		Short: "Show service statuses of a running supervisor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return newClient(apiFlags).Status(os.Stdout, name)
		},
	}
	addAPIFlags(status, apiFlags)
	root.AddCommand(status)

	start := &cobra.Command{
		Use:   "start",
		Short: "Start a group or service in a running supervisor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := selector.check(); err != nil {
				return err
			}
			return newClient(apiFlags).Op("start", selector)
		},
	}
	addAPIFlags(start, apiFlags)
	addSelectorFlags(start, selector)
	root.AddCommand(start)

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop a group or service in a running supervisor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := selector.check(); err != nil {
				return err
			}
			return newClient(apiFlags).Op("stop", selector)
		},
	}
	addAPIFlags(stop, apiFlags)
	addSelectorFlags(stop, selector)
	root.AddCommand(stop)

	return root
}

func addAPIFlags(cmd *cobra.Command, f *APIFlags) {
	cmd.Flags().StringVar(&f.URL, "api-url", defaultAPIURL, "control API address of the running supervisor")
	cmd.Flags().DurationVar(&f.Timeout, "api-timeout", 5*time.Second, "control API request timeout")
}

func addSelectorFlags(cmd *cobra.Command, f *SelectorFlags) {
	cmd.Flags().StringVar(&f.Group, "group", "", "target group name or alias")
	cmd.Flags().StringVar(&f.Service, "service", "", "target service name or alias")
}

func (f *SelectorFlags) check() error {
	if (f.Group == "") == (f.Service == "") {
		return fmt.Errorf("exactly one of --group or --service is required")
	}
	return nil
}

func runUp(global *GlobalFlags, flags *UpFlags, groups []string) error {
	logger.Setup(os.Stderr, global.LogLevel, !global.NoColor)

	rt := stackup.New()
	if err := rt.LoadAll(global.ConfigPath); err != nil {
		return err
	}
	defer rt.Close()

	if flags.Watch {
		if err := rt.WatchConfig(); err != nil {
			return err
		}
	}
	if flags.Serve != "" {
		if err := stackup.RegisterMetricsDefault(); err != nil {
			return err
		}
		srv, err := stackup.NewHTTPServer(flags.Serve, flags.APIBase, rt)
		if err != nil {
			return err
		}
		defer func() { _ = srv.Close() }()
	}
	if flags.MetricsAddr != "" {
		if err := stackup.RegisterMetricsDefault(); err != nil {
			return err
		}
		go func() { _ = stackup.ServeMetrics(flags.MetricsAddr) }()
	}

	if len(groups) == 0 {
		groups = rt.GroupNames()
	}
	ctx := context.Background()
	for _, g := range groups {
		if err := rt.StartGroup(ctx, g); err != nil {
			rt.Shutdown(ctx)
			return err
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	fmt.Printf("received %s, shutting down\n", s)
	rt.Shutdown(ctx)
	return nil
}
