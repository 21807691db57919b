// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package intake

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// lookupIDLength is the number of hex characters after the key prefix
	// that identify the key for lookup.
	lookupIDLength = 8

	// secretLength is the size of the random secret in bytes.
	secretLength = 32
)

// API key format: <prefix><8 hex lookup id>_<base64url secret>
//
// Only the prefix plus lookup id is stored in clear. The full key is
// SHA-256 hashed (bcrypt's 72-byte limit) and then bcrypt hashed.

func generateKey(prefix string, cost int) (key, lookup, hash string, err error) {
	id := make([]byte, lookupIDLength/2)
	if _, err = rand.Read(id); err != nil {
		return "", "", "", fmt.Errorf("generate key id: %w", err)
	}
	secret := make([]byte, secretLength)
	if _, err = rand.Read(secret); err != nil {
		return "", "", "", fmt.Errorf("generate key secret: %w", err)
	}

	lookup = prefix + hex.EncodeToString(id)
	key = lookup + "_" + base64.RawURLEncoding.EncodeToString(secret)
	hash, err = hashKey(key, cost)
	if err != nil {
		return "", "", "", err
	}
	return key, lookup, hash, nil
}

// lookupPrefix extracts the stored lookup prefix from key.
func lookupPrefix(prefix, key string) (string, bool) {
	if !strings.HasPrefix(key, prefix) {
		return "", false
	}
	n := len(prefix) + lookupIDLength
	if len(key) < n+2 || key[n] != '_' {
		return "", false
	}
	return key[:n], true
}

func hashKey(key string, cost int) (string, error) {
	sha := sha256.Sum256([]byte(key))
	hash, err := bcrypt.GenerateFromPassword(sha[:], cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt failed: %w", err)
	}
	return string(hash), nil
}

func verifyKey(key, storedHash string) bool {
	sha := sha256.Sum256([]byte(key))
	return bcrypt.CompareHashAndPassword([]byte(storedHash), sha[:]) == nil
}
