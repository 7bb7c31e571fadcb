/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
)

var (
	errBackpressure = errors.New("client send buffer full")
	errClientClosed = errors.New("client connection closed")
	errNoCookie     = errors.New("no player cookie")
)

func newPage(prefix, title, body string) string {
	var htmlBody strings.Builder

	prefix = html.EscapeString(prefix)

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon(prefix))
	htmlBody.WriteString(fmt.Sprintf(`<link rel="stylesheet" href="%s/assets/readyroom.css">`, prefix))
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", html.EscapeString(title)))
	htmlBody.WriteString(fmt.Sprintf("<body class=\"notice\"><a href=\"%s/\">%s</a></body></html>", prefix, html.EscapeString(body)))

	return htmlBody.String()
}

func serveErrorPage(cfg *Config, w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	io.WriteString(w, newPage(cfg.prefix, http.StatusText(status), body))
}
