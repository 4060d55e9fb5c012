// Package secret holds private key material behind a wrapper that is
// zeroized on Destroy and never renders its contents through String,
// GoString, or JSON marshaling. Every venue signer stores its key through
// this type; no panic message, log line, or serialization path may read
// the underlying bytes.
package secret

import "fmt"

// Bytes holds sensitive byte material. The zero value is empty and safe
// to use; call Destroy when the secret is no longer needed.
type Bytes struct {
	b []byte
}

// New copies src into a new secret. The caller remains responsible for
// clearing src if it owns the only other copy.
func New(src []byte) *Bytes {
	cp := make([]byte, len(src))
	copy(cp, src)
	return &Bytes{b: cp}
}

// Expose returns the underlying bytes for use in exactly one signing
// operation. Callers must not retain the returned slice past that call.
func (s *Bytes) Expose() []byte {
	if s == nil {
		return nil
	}
	return s.b
}

// Destroy overwrites the backing array with zeroes. Safe to call more
// than once.
func (s *Bytes) Destroy() {
	if s == nil {
		return
	}
	for i := range s.b {
		s.b[i] = 0
	}
	s.b = nil
}

// String never returns the secret — it is redacted so that accidental use
// in a log line or fmt.Sprintf("%v", ...) cannot leak key material.
func (s *Bytes) String() string {
	return "secret.Bytes(REDACTED)"
}

// GoString mirrors String for %#v formatting.
func (s *Bytes) GoString() string {
	return "secret.Bytes(REDACTED)"
}

// MarshalJSON refuses to serialize the secret.
func (s *Bytes) MarshalJSON() ([]byte, error) {
	return nil, fmt.Errorf("secret.Bytes: refusing to marshal secret material")
}
