// Package cmd implements the laeproxy command-line tree: a root
// cobra.Command with a handful of small, directly-runnable subcommands,
// since this proxy has no dynamic configuration to adapt or reload.
package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/getlantern/laeproxy"
	"github.com/getlantern/laeproxy/internal/relay"
	"github.com/getlantern/laeproxy/server"
)

var (
	flagConfig string
	flagListen string
)

// Root builds the laeproxy root command.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "laeproxy",
		Short: "laeproxy relays client-encoded URLs to the open Internet",
		Long: `laeproxy is an HTTP forward proxy for clients on a censored network.
A client addresses it at /<scheme>/<host>[/<rest>]; laeproxy decodes that
path, sanitizes and forwards the request to the named host, and relays the
result back, annotated with diagnostic X-laeproxy-* headers.`,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a YAML config file")
	root.AddCommand(runCmd(), versionCmd(), environCmd())
	return root
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the proxy in the foreground",
		RunE: func(c *cobra.Command, args []string) error {
			cfg := laeproxy.DefaultConfig()
			if err := laeproxy.LoadConfigFile(&cfg, flagConfig); err != nil {
				return err
			}
			laeproxy.ApplyEnv(&cfg)
			if flagListen != "" {
				cfg.ListenAddr = flagListen
			}
			cfg.ResolveQuotas()

			log, err := laeproxy.NewLogger(cfg.Dev)
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			defer log.Sync() //nolint:errcheck

			return runServer(cfg, log)
		},
	}
	cmd.Flags().StringVar(&flagListen, "listen", "", "address to listen on, e.g. :8080 (overrides config)")
	return cmd
}

func runServer(cfg laeproxy.Config, log *zap.Logger) error {
	metrics := relay.NewMetrics(promRegisterer())
	limiter := newLimiter(cfg.OutboundQPS)
	fetcher := relay.NewHTTPFetcher(limiter)
	handler := relay.NewHandler(fetcher, cfg.Quotas, laeproxy.Version, log, metrics)

	proxyRouter := server.NewProxyRouter(handler)
	metricsRouter := server.NewMetricsRouter()

	errc := make(chan error, 2)
	go func() {
		log.Info("proxy listening", zap.String("addr", cfg.ListenAddr))
		errc <- http.ListenAndServe(cfg.ListenAddr, proxyRouter)
	}()
	go func() {
		log.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
		errc <- http.ListenAndServe(cfg.MetricsAddr, metricsRouter)
	}()
	return <-errc
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		RunE: func(c *cobra.Command, args []string) error {
			fmt.Println(laeproxy.Version)
			return nil
		},
	}
}

func environCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "environ",
		Short: "Print the resolved configuration and exit",
		RunE: func(c *cobra.Command, args []string) error {
			cfg := laeproxy.DefaultConfig()
			if err := laeproxy.LoadConfigFile(&cfg, flagConfig); err != nil {
				return err
			}
			laeproxy.ApplyEnv(&cfg)
			cfg.ResolveQuotas()
			fmt.Printf("%+v\n", cfg)
			return nil
		},
	}
}
