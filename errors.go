/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"html"
	"strings"
)

var (
	errEmptyConnectionID = errors.New("connection id must not be empty")
	errEmptyRoomID       = errors.New("room id must not be empty")
	errEmptyName         = errors.New("display name must not be empty")
	errEmptyEvent        = errors.New("game event name must not be empty")
	errUnknownConnection = errors.New("unknown connection")
	errUnknownEvent      = errors.New("unknown event")
	errMalformedFrame    = errors.New("malformed frame")
	errSendBufferFull    = errors.New("send buffer full")
	errConnectionClosed  = errors.New("connection closed")
)

// malformed wraps errMalformedFrame with the offending event name.
func malformed(event, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", errMalformedFrame, event, fmt.Sprintf(format, args...))
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", html.EscapeString(title)))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", html.EscapeString(body)))

	return htmlBody.String()
}
