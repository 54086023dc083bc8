package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/justinpopa/netconf-web/internal/config"
	"github.com/justinpopa/netconf-web/internal/httpserver"
	"github.com/justinpopa/netconf-web/internal/logging"
	"github.com/justinpopa/netconf-web/internal/script"
	nctls "github.com/justinpopa/netconf-web/internal/tls"
	"github.com/justinpopa/netconf-web/web"
)

var version = "dev"

const shutdownTimeout = 5 * time.Second

func main() {
	loader := config.Parse()
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if cfg.Version {
		fmt.Println("netconfd " + version)
		os.Exit(0)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log = log.WithValues("version", version)

	runner := script.New(cfg.ScriptSettings(), log.WithName("script"))
	if p, err := runner.Resolve(); err != nil {
		log.Error(err, "configuration script not resolvable, /healthz will report unhealthy")
	} else {
		log.Info("configuration script", "path", p, "timeout", cfg.ScriptTimeout.String())
	}

	tmplFS, err := fs.Sub(web.TemplatesFS, "templates")
	if err != nil {
		log.Error(err, "templates fs")
		os.Exit(1)
	}
	statFS, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		log.Error(err, "static fs")
		os.Exit(1)
	}

	srv, err := httpserver.New(runner, httpserver.Options{
		Log:            log.WithName("http"),
		Title:          cfg.Title,
		SilentFailures: cfg.SilentFailures,
	}, tmplFS, statFS)
	if err != nil {
		log.Error(err, "http server")
		os.Exit(1)
	}

	handler := srv.Handler()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	// Config reload
	g.Go(func() error {
		watchConfig(ctx, loader, log.WithName("config"), runner)
		return nil
	})

	// HTTP server
	g.Go(func() error {
		httpHandler := handler
		if cfg.HTTPSRedirect {
			// Extract port from HTTPS address for redirect target
			httpsPort := "443"
			if _, p, err := net.SplitHostPort(cfg.HTTPSAddr); err == nil {
				httpsPort = p
			}
			httpHandler = httpserver.HTTPSRedirectMiddleware(httpsPort, handler)
			log.Info("HTTPS redirect enabled (/healthz excluded)")
		}

		httpSrv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           httpHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		log.Info("http listening", "addr", cfg.HTTPAddr)
		return serve(ctx, httpSrv, func() error { return httpSrv.ListenAndServe() })
	})

	// HTTPS server
	if cfg.HTTPSAddr != "" {
		g.Go(func() error {
			tlsCfg, err := nctls.ProvideTLS(ctx, nctls.Options{
				Log:         log.WithName("tls"),
				DataDir:     cfg.DataDir,
				CertFile:    cfg.TLSCertFile,
				KeyFile:     cfg.TLSKeyFile,
				ACMEDomain:  cfg.ACMEDomain,
				ACMEEmail:   cfg.ACMEEmail,
				ACMEStaging: cfg.ACMEStaging,

				ACMEResolvers:          cfg.ACMEResolvers,
				ACMEPropagationDelay:   cfg.ACMEPropagationDelay,
				ACMEPropagationTimeout: cfg.ACMEPropagationTimeout,
			})
			if err != nil {
				log.Error(err, "tls setup failed, HTTPS disabled")
				return nil
			}

			httpsSrv := &http.Server{
				Addr:              cfg.HTTPSAddr,
				Handler:           handler,
				TLSConfig:         tlsCfg,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ln, err := tls.Listen("tcp", cfg.HTTPSAddr, tlsCfg)
			if err != nil {
				return err
			}
			log.Info("https listening", "addr", cfg.HTTPSAddr)
			return serve(ctx, httpsSrv, func() error { return httpsSrv.Serve(ln) })
		})
	}

	if err := g.Wait(); err != nil {
		log.Error(err, "fatal")
		os.Exit(1)
	}
}

// watchConfig applies script changes from the config file to runner until
// ctx is done. A watcher that fails is logged and the servers keep running
// with the settings they have.
func watchConfig(ctx context.Context, loader *config.Loader, log logr.Logger, runner *script.Runner) {
	err := loader.Watch(ctx, log, func(c *config.Config) {
		runner.Update(c.ScriptSettings())
	})
	if err != nil {
		log.Error(err, "config reload disabled")
	}
}

// serve runs listen until ctx is done, then shuts srv down, letting
// in-flight configuration requests finish for a short while.
func serve(ctx context.Context, srv *http.Server, listen func() error) error {
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			srv.Close()
		}
	}()

	if err := listen(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
