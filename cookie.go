package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Seednode/readyroom/room"
	"github.com/gorilla/securecookie"
)

const (
	playerCookieName   = "player_token"
	playerCookieMaxAge = 7200
)

// tokenCodec signs player tokens so clients cannot forge someone else's.
type tokenCodec struct {
	sc *securecookie.SecureCookie
}

func newTokenCodec(secret string) (*tokenCodec, error) {
	key := []byte(secret)
	if secret == "" {
		key = securecookie.GenerateRandomKey(32)
		if key == nil {
			return nil, errors.New("unable to generate cookie key")
		}
	}

	sc := securecookie.New(key, nil).MaxAge(playerCookieMaxAge)
	sc.SetSerializer(securecookie.JSONEncoder{})

	return &tokenCodec{sc: sc}, nil
}

func (tc *tokenCodec) encode(token room.Token) (string, error) {
	value, err := tc.sc.Encode(playerCookieName, string(token))
	if err != nil {
		return "", fmt.Errorf("encode player token: %w", err)
	}
	return value, nil
}

func (tc *tokenCodec) decode(value string) (room.Token, error) {
	var token string
	if err := tc.sc.Decode(playerCookieName, value, &token); err != nil {
		return "", fmt.Errorf("decode player token: %w", err)
	}
	return room.Token(token), nil
}

// fromRequest returns the token carried by r's cookie, if any.
func (tc *tokenCodec) fromRequest(r *http.Request) (room.Token, error) {
	c, err := r.Cookie(playerCookieName)
	if err != nil || c.Value == "" {
		return "", errNoCookie
	}
	return tc.decode(c.Value)
}

func (tc *tokenCodec) cookie(cfg *Config, token room.Token) (*http.Cookie, error) {
	value, err := tc.encode(token)
	if err != nil {
		return nil, err
	}

	return &http.Cookie{
		Name:     playerCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   playerCookieMaxAge,
		Secure:   cfg.scheme() == "https",
		SameSite: http.SameSiteStrictMode,
	}, nil
}
