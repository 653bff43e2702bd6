package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/ssh"
	"github.com/rs/zerolog/log"
	gossh "golang.org/x/crypto/ssh"
)

var readKeysFile = os.ReadFile

// loadAuthorizedKeys reads src as an authorized_keys file, or as inline authorized_keys content
// when no such file exists. An empty src yields no keys.
func loadAuthorizedKeys(src string) ([]ssh.PublicKey, error) {
	if src == "" {
		return nil, nil
	}
	raw, err := readKeysFile(src)
	if errors.Is(err, os.ErrNotExist) {
		raw = []byte(src)
	} else if err != nil {
		return nil, fmt.Errorf("read authorized keys: %w", err)
	}

	var keys []ssh.PublicKey
	rest := bytes.TrimSpace(raw)
	for len(rest) > 0 {
		key, _, _, next, err := gossh.ParseAuthorizedKey(rest)
		if err != nil {
			return nil, fmt.Errorf("parse authorized keys: %w", err)
		}
		keys = append(keys, key)
		rest = bytes.TrimSpace(next)
	}
	if len(keys) == 0 {
		return nil, errors.New("authorized keys: no keys found")
	}
	return keys, nil
}

// publicKeyHandler admits any key when allowed is empty, otherwise only the listed keys.
func publicKeyHandler(allowed []ssh.PublicKey) ssh.PublicKeyHandler {
	return func(ctx ssh.Context, key ssh.PublicKey) bool {
		fingerprint := gossh.FingerprintSHA256(key)
		if len(allowed) == 0 {
			log.Debug().Str("user", ctx.User()).Str("fingerprint", fingerprint).Msg("ssh auth accepted (open)")
			return true
		}
		for _, k := range allowed {
			if ssh.KeysEqual(k, key) {
				log.Info().Str("user", ctx.User()).Str("fingerprint", fingerprint).Msg("ssh auth accepted")
				return true
			}
		}
		log.Warn().Str("user", ctx.User()).Str("fingerprint", fingerprint).Msg("ssh auth denied")
		return false
	}
}

// sessionFor derives the cache session of an SSH connection from its key, so reconnecting with
// the same key reuses the cached series and models.
func sessionFor(user string, key ssh.PublicKey) string {
	if key == nil {
		return "ssh-" + user
	}
	return "ssh-" + gossh.FingerprintSHA256(key)
}
