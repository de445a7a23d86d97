// File: cmd/serve.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/editbridge/internal/bridge"
	"github.com/xkilldash9x/editbridge/internal/config"
	"github.com/xkilldash9x/editbridge/internal/dom"
	"github.com/xkilldash9x/editbridge/internal/livedom"
	"github.com/xkilldash9x/editbridge/internal/observability"
	"github.com/xkilldash9x/editbridge/internal/selector"
)

// newServeCmd creates and configures the `serve` command.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the edit agent and exposes its bridge over a websocket endpoint",
		Long: `Serve attaches the agent to a page -- either a live URL rendered in a
headless browser, or a static HTML file -- and listens for controller
connections on a websocket endpoint.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := observability.GetLogger()
			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			targetURL, _ := cmd.Flags().GetString("target")
			htmlPath, _ := cmd.Flags().GetString("html")
			if (targetURL == "") == (htmlPath == "") {
				return errors.New("exactly one of --target or --html is required")
			}

			doc, cleanup, err := openDocument(ctx, cfg, targetURL, htmlPath, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			transport := bridge.NewWSTransport(logger)
			br := bridge.New(doc, transport, bridge.Settings{
				ParentOrigin:      cfg.Bridge.ParentOrigin,
				AllowedOrigins:    cfg.Bridge.AllowedOrigins,
				StrictOriginCheck: cfg.Bridge.StrictOriginCheck,
				AutoDetectParent:  cfg.Bridge.AutoDetectParent,
				// Static HTML has no origin; live pages trust their own.
				SelfOrigin:    bridge.OriginOf(targetURL),
				FrameInterval: cfg.Bridge.FrameInterval,
				Selector: selector.Options{
					Budget:               cfg.Selector.Budget,
					MaxDepth:             cfg.Selector.MaxDepth,
					PreferDataAttrs:      cfg.Selector.PreferDataAttrs,
					FilterUtilityClasses: cfg.Selector.FilterUtilityClasses,
				},
			}, logger)

			mux := http.NewServeMux()
			mux.HandleFunc(cfg.Server.Path, transport.HandleWS)
			srv := &http.Server{Addr: cfg.Server.Listen, Handler: mux}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				transport.Run(gctx)
				return nil
			})
			g.Go(func() error {
				logger.Info("bridge endpoint listening",
					zap.String("addr", cfg.Server.Listen), zap.String("path", cfg.Server.Path))
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			g.Go(func() error {
				err := br.Run(gctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("editbridge stopped")
			return nil
		},
	}

	serveCmd.Flags().String("target", "", "URL of the live page to attach to")
	serveCmd.Flags().String("html", "", "path to a static HTML file to serve from memory")
	serveCmd.Flags().String("listen", "", "websocket listen address (overrides server.listen)")
	serveCmd.Flags().Bool("headless", true, "run the backing browser headless")
	return serveCmd
}

// openDocument builds the document backend for the chosen mode and returns a
// cleanup to release it.
func openDocument(ctx context.Context, cfg *config.Config, targetURL, htmlPath string, logger *zap.Logger) (dom.Document, func(), error) {
	if htmlPath != "" {
		f, err := os.Open(htmlPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", htmlPath, err)
		}
		defer f.Close()
		doc, err := dom.Parse(f, dom.Size{
			Width:  float64(cfg.Browser.ViewportWidth),
			Height: float64(cfg.Browser.ViewportHeight),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", htmlPath, err)
		}
		return doc, func() {}, nil
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !cfg.Browser.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.Browser.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	for _, arg := range cfg.Browser.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}
	opts = append(opts, chromedp.WindowSize(cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight))

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	doc, err := livedom.New(tabCtx, targetURL, logger)
	if err != nil {
		cancelTab()
		cancelAlloc()
		return nil, nil, err
	}
	cleanup := func() {
		doc.Close()
		cancelTab()
		cancelAlloc()
	}
	return doc, cleanup, nil
}
