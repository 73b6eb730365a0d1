package converter

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/sha3"
)

// FingerprintVersion changes whenever generated output changes for the same
// inputs, so every generated file is reported stale after an upgrade.
const FingerprintVersion uint8 = 1

const fingerprintPrefix = "// grnconv:fingerprint "

// fingerprintInput is everything a generated file is derived from.
type fingerprintInput struct {
	Version      uint8
	TestPath     string
	Script       string
	Expected     string
	Dialect      string
	ClientImport string
	Omit         string
	Skip         []string
	Drop         []int
}

// MarshalBinary produces the deterministic CBOR encoding of the input.
func (fi *fingerprintInput) MarshalBinary() ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}

	type fingerprintAlias fingerprintInput
	data, err := encMode.Marshal((*fingerprintAlias)(fi))
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

// Fingerprint returns the hex SHA3-256 digest of the input.
func (fi *fingerprintInput) Fingerprint() (string, error) {
	data, err := fi.MarshalBinary()
	if err != nil {
		return "", err
	}
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ReadFingerprint extracts the fingerprint from the header of a generated
// file.
func ReadFingerprint(src []byte) (string, bool) {
	sc := bufio.NewScanner(bytes.NewReader(src))
	for sc.Scan() {
		line := sc.Text()
		if fp, ok := strings.CutPrefix(line, fingerprintPrefix); ok {
			return strings.TrimSpace(fp), true
		}
		if strings.HasPrefix(line, "package ") {
			break
		}
	}
	return "", false
}
