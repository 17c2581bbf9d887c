package main

import (
	"github.com/spf13/cobra"

	"github.com/guarzo/pkmpricedash/internal/prices"
	"github.com/guarzo/pkmpricedash/internal/proxy"
	"github.com/guarzo/pkmpricedash/internal/server"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and the /api proxy",
		Long: `Serve mounts the dashboard at / (JSON at /dashboard.json) and forwards
/api/* to the pricing API with the path unchanged. Prices are fetched once
at startup, and again on every tick of --refresh when set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg

			var px *proxy.Proxy
			if cfg.Proxy.Enabled {
				p, err := proxy.New(proxy.Options{
					Upstream:  cfg.Proxy.Upstream,
					RateLimit: cfg.Proxy.RateLimit,
					Burst:     cfg.Proxy.Burst,
				}, a.log)
				if err != nil {
					return err
				}
				px = p
			}

			srv, err := server.New(server.Options{
				Address: cfg.Server.Address,
				Proxy:   px,
				Provider: func(localAPI string) prices.Provider {
					if cfg.API.ViaProxy && px != nil {
						return a.provider(localAPI)
					}
					return a.provider("")
				},
				RefreshSchedule: cfg.Refresh.Schedule,
			}, a.log)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.String("addr", "", "listen address (default from server.address)")
	flags.String("upstream", "", "proxy upstream (default from proxy.upstream)")
	flags.String("refresh", "", "cron schedule for refetching prices, e.g. \"@every 1h\"")
	flags.Bool("via-proxy", false, "fetch prices through this server's /api proxy")
	flags.Bool("no-proxy", false, "do not serve /api")

	_ = a.v.BindPFlag("server.address", flags.Lookup("addr"))
	_ = a.v.BindPFlag("proxy.upstream", flags.Lookup("upstream"))
	_ = a.v.BindPFlag("refresh.schedule", flags.Lookup("refresh"))
	_ = a.v.BindPFlag("api.via_proxy", flags.Lookup("via-proxy"))
	cmd.PreRun = func(cmd *cobra.Command, _ []string) {
		if off, _ := cmd.Flags().GetBool("no-proxy"); off {
			a.cfg.Proxy.Enabled = false
		}
	}
	return cmd
}
