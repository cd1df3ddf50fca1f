package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix enables future algorithm migration.
const (
	DomainRecord  = "concord/record/v1"
	DomainBinding = "concord/binding/v1"
	DomainTrace   = "concord/trace/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordDigest computes the content-addressed digest of an action record.
// The digest is stable across restarts and replays given the same inputs,
// which is what makes replay verification byte-exact.
func RecordDigest(r *ActionRecord) (string, error) {
	obj := Object{
		"id":          Int(r.ID),
		"causal_id":   String(r.CausalID),
		"concept":     String(r.Concept),
		"op":          String(r.Op),
		"input":       r.Input,
		"output_case": String(r.Output.Case),
		"output":      r.Output.Fields,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("record digest: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// BindingHash computes the hash of a frame's bindings.
// Equal binding values always produce equal hashes via canonical JSON,
// which gives frame-level dispatch its exactly-once identity.
func BindingHash(bindings Object) (string, error) {
	canonical, err := MarshalCanonical(bindings)
	if err != nil {
		return "", fmt.Errorf("binding hash: %w", err)
	}
	return hashWithDomain(DomainBinding, canonical), nil
}

// TraceDigest folds an ordered sequence of record digests into a single
// chain digest. Two logs with identical record sequences produce identical
// trace digests; any divergence in order or content changes the result.
func TraceDigest(digests []string) string {
	h := sha256.New()
	h.Write([]byte(DomainTrace))
	h.Write([]byte{0x00})
	for _, d := range digests {
		h.Write([]byte(d))
		h.Write([]byte{0x00})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MustRecordDigest is like RecordDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRecordDigest(r *ActionRecord) string {
	d, err := RecordDigest(r)
	if err != nil {
		panic(err)
	}
	return d
}

// MustBindingHash is like BindingHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustBindingHash(bindings Object) string {
	h, err := BindingHash(bindings)
	if err != nil {
		panic(err)
	}
	return h
}
