package paybox

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// BuildSignatureBase builds the Paybox canonical string for a script:
// script;value1;value2;...;secret where values are ordered by their
// parameter name. The pg_sig field itself is never part of the base.
func BuildSignatureBase(script string, params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "pg_sig" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+2)
	parts = append(parts, script)
	for _, k := range keys {
		parts = append(parts, params[k])
	}
	parts = append(parts, secret)
	return strings.Join(parts, ";")
}

// Sign computes the MD5 hex digest Paybox expects in pg_sig
func Sign(base string) string {
	h := md5.Sum([]byte(base))
	return hex.EncodeToString(h[:])
}

// SignParams builds the base string for a script and signs it
func SignParams(script string, params map[string]string, secret string) string {
	return Sign(BuildSignatureBase(script, params, secret))
}

// VerifySignature compares two hex signatures in constant time,
// case-insensitively
func VerifySignature(expectedHex, receivedHex string) bool {
	expected := strings.ToLower(strings.TrimSpace(expectedHex))
	received := strings.ToLower(strings.TrimSpace(receivedHex))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}
