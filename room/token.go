/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// DefaultTokenBytes gives tokens 256 bits of entropy.
const DefaultTokenBytes = 32

// Token is the durable identity a participant carries across reconnects.
type Token string

// ConnID identifies one live connection. It is assigned once, at accept time.
type ConnID string

// NewToken returns a URL-safe token drawn from crypto/rand.
func NewToken(size int) Token {
	if size <= 0 {
		size = DefaultTokenBytes
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}

	return Token(base64.RawURLEncoding.EncodeToString(buf))
}

func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}
