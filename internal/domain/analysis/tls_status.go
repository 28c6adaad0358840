package analysis

import (
	"encoding/json"
	"fmt"
)

// TLSKind tags which TLSStatus variant is populated.
type TLSKind string

const (
	TLSNotSecure TLSKind = "not_secure"
	TLSSecure    TLSKind = "secure"
	TLSFailed    TLSKind = "error"
)

// CertificateInfo is the peer certificate metadata as presented by the
// server. Nothing here has been validated against a trust store.
type CertificateInfo struct {
	Subject            string   `json:"subject" yaml:"subject"`
	Issuer             string   `json:"issuer" yaml:"issuer"`
	SerialNumber       string   `json:"serial_number" yaml:"serial_number"`
	NotBefore          string   `json:"not_before" yaml:"not_before"`
	NotAfter           string   `json:"not_after" yaml:"not_after"`
	DNSNames           []string `json:"dns_names,omitempty" yaml:"dns_names,omitempty"`
	SignatureAlgorithm string   `json:"signature_algorithm" yaml:"signature_algorithm"`
	PublicKeyAlgorithm string   `json:"public_key_algorithm" yaml:"public_key_algorithm"`
	KeySize            int      `json:"key_size,omitempty" yaml:"key_size,omitempty"`
	SelfSigned         bool     `json:"self_signed" yaml:"self_signed"`
	TLSVersion         string   `json:"tls_version" yaml:"tls_version"`
	CipherSuite        string   `json:"cipher_suite" yaml:"cipher_suite"`
}

// TLSStatus is exactly one of NotSecure, Secure(certificate) or Error(reason).
// Use Certificate to read the certificate; it is only present for TLSSecure.
type TLSStatus struct {
	kind   TLSKind
	cert   CertificateInfo
	reason string
}

// NotSecure is the status of a URL whose scheme is not https.
func NotSecure() TLSStatus {
	return TLSStatus{kind: TLSNotSecure}
}

// Secure is the status of a completed handshake.
func Secure(cert CertificateInfo) TLSStatus {
	return TLSStatus{kind: TLSSecure, cert: cert}
}

// TLSError is the status of a failed connection or handshake.
func TLSError(reason string) TLSStatus {
	return TLSStatus{kind: TLSFailed, reason: reason}
}

// Kind returns the populated variant. The zero TLSStatus reports TLSNotSecure.
func (s TLSStatus) Kind() TLSKind {
	if s.kind == "" {
		return TLSNotSecure
	}
	return s.kind
}

// Certificate returns the certificate and true for the Secure variant only.
func (s TLSStatus) Certificate() (CertificateInfo, bool) {
	if s.kind != TLSSecure {
		return CertificateInfo{}, false
	}
	return s.cert, true
}

// Reason returns the failure reason for the Error variant.
func (s TLSStatus) Reason() string {
	if s.kind != TLSFailed {
		return ""
	}
	return s.reason
}

// Label is a short human-readable description of the variant.
func (s TLSStatus) Label() string {
	switch s.Kind() {
	case TLSSecure:
		return "Secure (HTTPS)"
	case TLSFailed:
		return "Error: " + s.reason
	default:
		return "Not Secure (HTTP)"
	}
}

type tlsStatusView struct {
	Status      TLSKind          `json:"status" yaml:"status"`
	Certificate *CertificateInfo `json:"certificate,omitempty" yaml:"certificate,omitempty"`
	Reason      string           `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func (s TLSStatus) view() tlsStatusView {
	v := tlsStatusView{Status: s.Kind()}
	if cert, ok := s.Certificate(); ok {
		v.Certificate = &cert
	}
	v.Reason = s.Reason()
	return v
}

// MarshalJSON encodes the variant tag alongside its payload.
func (s TLSStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.view())
}

// UnmarshalJSON decodes the shape produced by MarshalJSON.
func (s *TLSStatus) UnmarshalJSON(b []byte) error {
	var v tlsStatusView
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v.Status {
	case TLSSecure:
		if v.Certificate == nil {
			return fmt.Errorf("tls status: secure without certificate")
		}
		*s = Secure(*v.Certificate)
	case TLSFailed:
		*s = TLSError(v.Reason)
	case TLSNotSecure, "":
		*s = NotSecure()
	default:
		return fmt.Errorf("tls status: unknown status %q", v.Status)
	}
	return nil
}

// MarshalYAML mirrors the JSON shape.
func (s TLSStatus) MarshalYAML() (any, error) {
	return s.view(), nil
}
