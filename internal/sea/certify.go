package sea

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gundb/gun-go/internal/gunerr"
)

// Certificate grants certificants (a public key or "*" for anyone) read
// and/or write access to paths matching a policy, optionally expiring and
// optionally excluding a block pattern. Grounded on original_source
// src/sea/certify.rs Certificate/Policy, collapsed from the Rust enum
// hierarchy to plain strings since Gun.js's own RAD/LEX policies are
// themselves just pattern strings on the wire.
type Certificate struct {
	Certificants string `json:"c"`
	Expiry       *float64 `json:"e,omitempty"`
	ReadPolicy   string   `json:"r,omitempty"`
	WritePolicy  string   `json:"w,omitempty"`
	ReadBlock    string   `json:"rb,omitempty"`
	WriteBlock   string   `json:"wb,omitempty"`
}

// CertifyOptions configures certificate issuance (spec §5 SEA.certify).
type CertifyOptions struct {
	Expiry     *float64
	ReadBlock  string
	WriteBlock string
	Raw        bool // when true, skip the "SEA" wire prefix
}

// Certify signs a Certificate with authority's key and renders it to the
// "SEA{...}" wire format (or raw JSON when opt.Raw).
func Certify(certificants, readPolicy, writePolicy string, authority *KeyPair, opt CertifyOptions) (string, error) {
	cert := Certificate{
		Certificants: certificants,
		Expiry:       opt.Expiry,
		ReadPolicy:   readPolicy,
		WritePolicy:  writePolicy,
		ReadBlock:    opt.ReadBlock,
		WriteBlock:   opt.WriteBlock,
	}

	var certData map[string]any
	raw, err := json.Marshal(cert)
	if err != nil {
		return "", gunerr.Wrap(gunerr.KindCrypto, "sea.Certify", err)
	}
	if err := json.Unmarshal(raw, &certData); err != nil {
		return "", gunerr.Wrap(gunerr.KindCrypto, "sea.Certify", err)
	}

	signed, err := Sign(certData, authority)
	if err != nil {
		return "", err
	}
	sigJSON, err := json.Marshal(signed)
	if err != nil {
		return "", gunerr.Wrap(gunerr.KindCrypto, "sea.Certify", err)
	}

	if opt.Raw {
		return string(sigJSON), nil
	}
	return "SEA" + string(sigJSON), nil
}

// VerifyCertificate strips the optional "SEA" prefix, verifies the
// signature against authorityPub, and returns the parsed Certificate.
func VerifyCertificate(cert, authorityPub string) (*Certificate, error) {
	trimmed := strings.TrimPrefix(cert, "SEA")

	var signed Signed
	if err := json.Unmarshal([]byte(trimmed), &signed); err != nil {
		return nil, gunerr.Wrap(gunerr.KindInvalidData, "sea.VerifyCertificate", err)
	}

	parsed, err := Verify(&signed, authorityPub)
	if err != nil {
		return nil, err
	}

	data, ok := parsed.(map[string]any)
	if !ok {
		return nil, gunerr.New(gunerr.KindInvalidData, "sea.VerifyCertificate", "certificate body is not an object")
	}

	c := &Certificate{}
	if s, ok := data["c"].(string); ok {
		c.Certificants = s
	}
	if e, ok := data["e"].(float64); ok {
		c.Expiry = &e
	}
	if s, ok := data["r"].(string); ok {
		c.ReadPolicy = s
	}
	if s, ok := data["w"].(string); ok {
		c.WritePolicy = s
	}
	if s, ok := data["rb"].(string); ok {
		c.ReadBlock = s
	}
	if s, ok := data["wb"].(string); ok {
		c.WriteBlock = s
	}
	return c, nil
}

// MatchesPolicy reports whether path satisfies policy: an exact match, a
// path prefix (policy + "/"), or the wildcard "*" (spec §5 certificate
// pattern matching, original_source src/sea/certify.rs matches_policy).
func MatchesPolicy(path, policy string) bool {
	if policy == "*" {
		return true
	}
	return path == policy || strings.HasPrefix(path, policy+"/")
}

// CheckPermission reports whether cert grants operation ("read" or
// "write") on path, honoring expiry and block patterns before consulting
// the relevant policy (original_source src/sea/certify.rs check_permission).
func CheckPermission(cert *Certificate, path, operation string) bool {
	if cert.Expiry != nil && float64(time.Now().UnixMilli()) > *cert.Expiry {
		return false
	}

	switch operation {
	case "read":
		if cert.ReadBlock != "" && strings.Contains(path, cert.ReadBlock) {
			return false
		}
		return cert.ReadPolicy != "" && MatchesPolicy(path, cert.ReadPolicy)
	case "write":
		if cert.WriteBlock != "" && strings.Contains(path, cert.WriteBlock) {
			return false
		}
		return cert.WritePolicy != "" && MatchesPolicy(path, cert.WritePolicy)
	default:
		return false
	}
}
