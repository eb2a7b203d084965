/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// cspHome loosens the default policy for the inline styles on the index.
func cspHome(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
}

func homePage(cfg *Config, room string) string {
	var b strings.Builder

	b.WriteString(`<!DOCTYPE html><html lang="pt-BR"><head><meta charset="utf-8">`)
	b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	b.WriteString(`<title>gamebox</title><style>`)
	b.WriteString(`body{font-family:sans-serif;max-width:40rem;margin:2rem auto;padding:0 1rem;}`)
	b.WriteString(`li{margin:.75rem 0;}small{color:#666;}`)
	b.WriteString(`</style></head><body><h1>Jogos</h1>`)

	if room != "" {
		qr := cfg.prefix + "/rooms/" + url.PathEscape(room) + "/qr"
		fmt.Fprintf(&b, `<p>Sala <code>%s</code></p><img src="%s" alt="QR code" width="%d" height="%d">`,
			html.EscapeString(room), html.EscapeString(qr), qrSize, qrSize)
	}

	b.WriteString(`<ul>`)
	for _, g := range gamesList {
		mode := "single player"
		if g.Multiplayer {
			mode = "multiplayer"
		}

		fmt.Fprintf(&b, `<li><strong>%s</strong> <small>%s</small><br>%s</li>`,
			html.EscapeString(g.Name), mode, html.EscapeString(g.Description))
	}
	b.WriteString(`</ul></body></html>`)

	return b.String()
}

func serveHomePage(cfg *Config, log zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		cspHome(cfg, w)

		if _, err := w.Write([]byte(homePage(cfg, r.URL.Query().Get("room")))); err != nil {
			log.Debug().Err(err).Msg("write failed")
		}
	}
}

func serveGames(cfg *Config, log zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if err := writeJSON(cfg, w, http.StatusOK, gamesList); err != nil {
			log.Debug().Err(err).Msg("write failed")
		}
	}
}

func serveGame(cfg *Config, log zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		game, ok := gameByID(ps.ByName("gameid"))
		if !ok {
			http.NotFound(w, r)
			return
		}

		if err := writeJSON(cfg, w, http.StatusOK, game); err != nil {
			log.Debug().Err(err).Msg("write failed")
		}
	}
}

func serveHealthCheck(cfg *Config, log zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		if _, err := w.Write([]byte("Ok\n")); err != nil {
			log.Debug().Err(err).Msg("write failed")
		}
	}
}

func serveRobots(cfg *Config, log zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: Amazonbot
Disallow: /

User-agent: Applebot-Extended
Disallow: /

User-agent: Bytespider
Disallow: /

User-agent: CCBot
Disallow: /

User-agent: ClaudeBot
Disallow: /

User-agent: Google-Extended
Disallow: /

User-agent: GPTBot
Disallow: /

User-agent: meta-externalagent
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		if _, err := w.Write([]byte(data)); err != nil {
			log.Debug().Err(err).Msg("write failed")
		}
	}
}
