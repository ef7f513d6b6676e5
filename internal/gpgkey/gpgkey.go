// Package gpgkey classifies and inspects user supplied GPG key input.
package gpgkey

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// ErrNoKeys is returned when input parses but holds no public keys
var ErrNoKeys = errors.New("no keys found in key data")

// IsURL reports whether input is an absolute http(s) URL rather than key material
func IsURL(input string) bool {
	s := strings.TrimSpace(input)
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return false
	}

	u, err := url.Parse(s)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsArmored reports whether input looks like an ASCII armored OpenPGP block
func IsArmored(input string) bool {
	return strings.Contains(input, "-----BEGIN PGP")
}

// Parse reads one or more public keys from armored or binary key data
func Parse(data string) (openpgp.EntityList, error) {
	if strings.TrimSpace(data) == "" {
		return nil, fmt.Errorf("key data is empty")
	}

	var entities openpgp.EntityList
	var err error
	if IsArmored(data) {
		entities, err = readArmored(data)
	} else {
		entities, err = openpgp.ReadKeyRing(strings.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}

	if len(entities) == 0 {
		return nil, ErrNoKeys
	}

	return entities, nil
}

// readArmored parses every armored block in data; key files often concatenate several
func readArmored(data string) (openpgp.EntityList, error) {
	var all openpgp.EntityList
	rest := data
	for {
		start := strings.Index(rest, "-----BEGIN PGP PUBLIC KEY BLOCK-----")
		if start < 0 {
			break
		}
		endMarker := "-----END PGP PUBLIC KEY BLOCK-----"
		end := strings.Index(rest[start:], endMarker)
		if end < 0 {
			return nil, fmt.Errorf("unterminated armored block")
		}
		block := rest[start : start+end+len(endMarker)]

		list, err := openpgp.ReadArmoredKeyRing(strings.NewReader(block))
		if err != nil {
			return nil, err
		}
		all = append(all, list...)
		rest = rest[start+end+len(endMarker):]
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("no armored public key block")
	}
	return all, nil
}

// Validate checks that data is parseable public key material
func Validate(data string) error {
	_, err := Parse(data)
	return err
}

// KeyInfo summarizes a public key for display
type KeyInfo struct {
	Fingerprint string
	KeyID       string
	Identities  []string
}

// Inspect returns a summary of each key in data
func Inspect(data string) ([]KeyInfo, error) {
	entities, err := Parse(data)
	if err != nil {
		return nil, err
	}

	infos := make([]KeyInfo, 0, len(entities))
	for _, e := range entities {
		info := KeyInfo{
			Fingerprint: fmt.Sprintf("%X", e.PrimaryKey.Fingerprint),
			KeyID:       e.PrimaryKey.KeyIdString(),
		}
		for name := range e.Identities {
			info.Identities = append(info.Identities, name)
		}
		sort.Strings(info.Identities)
		infos = append(infos, info)
	}
	return infos, nil
}

// Armor returns the public part of entity in armored form
func Armor(entity *openpgp.Entity) (string, error) {
	var buf bytes.Buffer

	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		return "", err
	}

	if err := entity.Serialize(w); err != nil {
		w.Close()
		return "", err
	}

	if err := w.Close(); err != nil {
		return "", err
	}

	return buf.String(), nil
}
