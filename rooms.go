/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
)

const (
	roomIDPrefix   = "room-"
	roomIDLength   = 9
	roomIDAttempts = 16
	qrSize         = 320
)

var errRoomIDExhausted = errors.New("could not generate an unused room id")

// newRoomID returns a random id that no live room is using.
func newRoomID(relay *Relay) (string, error) {
	const letters = "0123456789abcdefghijklmnopqrstuvwxyz"

	for attempt := 0; attempt < roomIDAttempts; attempt++ {
		buf := make([]byte, roomIDLength)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}

		out := make([]byte, roomIDLength)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}

		id := roomIDPrefix + string(out)
		if !relay.HasRoom(id) {
			return id, nil
		}
	}

	return "", errRoomIDExhausted
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(v)
}

func serveNewRoom(cfg *Config, relay *Relay, log zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id, err := newRoomID(relay)
		if err != nil {
			log.Error().Err(err).Msg("room id generation failed")
			http.Error(w, "unable to create room", http.StatusInternalServerError)
			return
		}

		log.Debug().Str("room", id).Str("remote", realIP(r)).Msg("room id issued")

		if err := writeJSON(cfg, w, http.StatusOK, map[string]string{"roomId": id}); err != nil {
			log.Debug().Err(err).Msg("write failed")
		}
	}
}

func serveRooms(cfg *Config, relay *Relay, log zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if err := writeJSON(cfg, w, http.StatusOK, relay.Rooms()); err != nil {
			log.Debug().Err(err).Msg("write failed")
		}
	}
}

// roomURL is the link a player scans to join roomID.
func roomURL(cfg *Config, r *http.Request, roomID string) string {
	scheme := cfg.scheme()
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     cfg.prefix + "/",
		RawQuery: url.Values{"room": {roomID}}.Encode(),
	}

	return u.String()
}

func serveRoomQR(cfg *Config, log zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := strings.TrimSpace(ps.ByName("roomid"))
		if roomID == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		png, err := qrcode.Encode(roomURL(cfg, r, roomID), qrcode.Medium, qrSize)
		if err != nil {
			log.Error().Err(err).Str("room", roomID).Msg("qr generation failed")
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)

		_, _ = w.Write(png)
	}
}
