// Copyright © 2018 One Concern

package cmd

import (
	"github.com/oneconcern/eris/pkg/gateway"
	"github.com/oneconcern/eris/pkg/httpd"
	"github.com/opentracing/opentracing-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// onServing is called once the gateway listens
var onServing = func(string) {}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configured block store over HTTP",
	Long: `Serve the blocks of the configured store over HTTP.

Routes:
  GET  /blocks/{ref}           fetch a block
  PUT  /blocks/{ref}           upload a block, which must hash to {ref}
  GET  /uri-res/N2R?urn:blake2b:{ref}
  GET  /healthz
  GET  /metrics

Other eris tools use a gateway with --store http and store.http.url.
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		cfg, l, ok := mustConfig(cmd)
		if !ok {
			return
		}
		store, ok := openStore(ctx, cfg, l)
		if !ok {
			return
		}
		defer func() { _ = store.Close() }()

		gw, err := gateway.New(store,
			gateway.Logger(l),
			gateway.RateLimit(cfg.Gateway.RateLimit, cfg.Gateway.Burst),
			gateway.ReadOnly(cfg.Gateway.ReadOnly),
			gateway.Tracer(opentracing.GlobalTracer()),
		)
		if err != nil {
			wrapFatalln("create gateway", err)
			return
		}

		opts := []httpd.Option{
			httpd.Handler(gw),
			httpd.Logger(l),
			httpd.Address(cfg.Gateway.Host, cfg.Gateway.Port),
			httpd.ListenLimit(cfg.Gateway.ListenLimit),
			httpd.Timeouts(cfg.Gateway.ReadTimeout, cfg.Gateway.WriteTimeout),
		}
		if erisFlags.serve.tlsCert != "" {
			opts = append(opts, httpd.TLS(erisFlags.serve.tlsCert, erisFlags.serve.tlsKey))
		}
		server := httpd.New(opts...)
		if err := server.Listen(); err != nil {
			wrapFatalln("listen", err)
			return
		}
		l.Info("block gateway ready", zap.String("url", server.URL()), zap.Bool("read_only", cfg.Gateway.ReadOnly))
		onServing(server.URL())

		if err := server.Serve(ctx); err != nil {
			wrapFatalln("serve", err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&erisFlags.serve.host, "host", "", "The host to listen on. Defaults to localhost")
	serveCmd.Flags().IntVar(&erisFlags.serve.port, "port", 0, "The port to listen on. Defaults to 8080")
	serveCmd.Flags().BoolVar(&erisFlags.serve.readOnly, "read-only", false, "Reject block uploads")
	serveCmd.Flags().StringVar(&erisFlags.serve.tlsCert, "tls-cert", "", "Serve HTTPS with this certificate")
	serveCmd.Flags().StringVar(&erisFlags.serve.tlsKey, "tls-key", "", "The key of the TLS certificate")
	rootCmd.AddCommand(serveCmd)
}
