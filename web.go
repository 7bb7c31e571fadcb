package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/readyroom/room"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveVersion(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("readyroom v" + releaseVersion + "\n"))
		if err != nil {
			log.Debug().Err(err).Str("module", "web").Msg("version write failed")

			return
		}

		log.Debug().
			Str("module", "web").
			Str("size", humanReadableSize(written)).
			Str("ip", realIP(r)).
			Dur("elapsed", time.Since(startTime).Round(time.Microsecond)).
			Msg("SERVE: version page")
	}
}

// lobby bundles what the room handlers share.
type lobby struct {
	cfg      *Config
	reg      *room.Registry
	renderer *viewRenderer
	cookies  *tokenCodec
}

func newRouter(cfg *Config, reg *room.Registry) (*httprouter.Router, error) {
	renderer, err := newViewRenderer(cfg)
	if err != nil {
		return nil, err
	}

	cookies, err := newTokenCodec(cfg.cookieSecret)
	if err != nil {
		return nil, err
	}

	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		log.Error().Str("module", "web").Interface("panic", i).Str("path", r.URL.Path).Msg("handler panicked")

		serveErrorPage(cfg, w, http.StatusInternalServerError, "An error has occurred. Please try again.")
	}

	mux.GET(cfg.prefix+"/", serveHomePage(cfg, renderer))

	mux.GET(cfg.prefix+"/favicons/*favicon", serveFavicons(cfg))

	mux.GET(cfg.prefix+"/assets/*asset", serveAssets(cfg))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, reg))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	registerLobby(&lobby{
		cfg:      cfg,
		reg:      reg,
		renderer: renderer,
		cookies:  cookies,
	}, mux)

	return mux, nil
}

func ServePage(ctx context.Context, cfg *Config) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	log.Info().Str("module", "web").Msgf("START: readyroom v%s", releaseVersion)

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	reg := room.NewRegistry(cfg.limits(), log.Logger)
	go reg.Run(ctx, cfg.gameTimeout)

	mux, err := newRouter(cfg, reg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	go func() {
		var err error

		log.Info().Str("module", "web").Msgf("SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)

		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("module", "web").Msg("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	return nil
}
