/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"embed"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/readyroom/room"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

//go:embed assets/*
var assets embed.FS

func serveHomePage(cfg *Config, renderer *viewRenderer) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		body, err := renderer.page("home.html", pageData{Prefix: cfg.prefix})
		if err != nil {
			log.Error().Err(err).Str("module", "web").Msg("render home page")
			serveErrorPage(cfg, w, http.StatusInternalServerError, "An error has occurred. Please try again.")

			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		written, err := w.Write([]byte(body))
		if err != nil {
			log.Debug().Err(err).Str("module", "web").Msg("home page write failed")

			return
		}

		log.Debug().
			Str("module", "web").
			Str("size", humanReadableSize(written)).
			Str("ip", realIP(r)).
			Dur("elapsed", time.Since(startTime).Round(time.Microsecond)).
			Msg("SERVE: home page")
	}
}

func serveHealthCheck(cfg *Config, reg *room.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Live-Rooms", strconv.Itoa(reg.Len()))
		securityHeaders(cfg, w)

		if _, err := w.Write([]byte("Ok\n")); err != nil {
			log.Debug().Err(err).Str("module", "web").Msg("health check write failed")
		}
	}
}

func serveAssets(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		fname := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, cfg.prefix), "/")

		data, err := assets.ReadFile(fname)
		if err != nil {
			http.NotFound(w, r)

			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		ext := strings.ToLower(filepath.Ext(fname))
		switch ext {
		case ".css":
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
		case ".js":
			w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		}

		if _, err = w.Write(data); err != nil {
			log.Debug().Err(err).Str("module", "web").Str("file", fname).Msg("asset write failed")
		}
	}
}

func serveRobots(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: *
Disallow: /lobby/
Disallow: /game/

User-agent: GPTBot
Disallow: /

User-agent: CCBot
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		if _, err := w.Write([]byte(data)); err != nil {
			log.Debug().Err(err).Str("module", "web").Msg("robots write failed")
		}
	}
}
