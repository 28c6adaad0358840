package checker

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/phishscope/internal/domain/analysis"
	consts "github.com/khanhnv2901/phishscope/internal/shared/constants"
)

// versionSSL30 is the legacy SSL 3.0 protocol version (0x0300), defined
// locally to avoid the deprecated tls.VersionSSL30 symbol.
const versionSSL30 uint16 = 0x0300

// DialFunc opens the raw TCP connection the handshake runs over.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// TLSInspector reports whether a URL is served over TLS and, if so, the
// metadata of the certificate the server presents.
type TLSInspector struct {
	timeout time.Duration
	port    string
	dial    DialFunc
	logger  *zap.Logger
}

// TLSInspectorOptions configures a TLSInspector.
type TLSInspectorOptions struct {
	HandshakeTimeout     time.Duration
	Port                 string // defaults to 443
	BlockPrivateNetworks bool
	Dial                 DialFunc // overrides the default dialer
	Logger               *zap.Logger
}

// NewTLSInspector builds an inspector whose connect plus handshake is bounded
// by HandshakeTimeout.
func NewTLSInspector(opts TLSInspectorOptions) *TLSInspector {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = consts.DefaultHandshakeTimeout
	}
	if opts.Port == "" {
		opts.Port = consts.DefaultTLSPort
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	dial := opts.Dial
	if dial == nil {
		dial = newDialer(opts.HandshakeTimeout, opts.BlockPrivateNetworks).DialContext
	}
	return &TLSInspector{
		timeout: opts.HandshakeTimeout,
		port:    opts.Port,
		dial:    dial,
		logger:  opts.Logger,
	}
}

// Inspect returns NotSecure for non-https URLs without touching the network.
// For https URLs it handshakes with the host and captures the leaf
// certificate as presented. The chain is not verified.
func (i *TLSInspector) Inspect(ctx context.Context, target string) analysis.TLSStatus {
	parts := Decompose(target)
	if !strings.EqualFold(parts.Scheme, "https") {
		return analysis.NotSecure()
	}
	if parts.Host == "" {
		return analysis.TLSError("url has no host")
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	address := net.JoinHostPort(parts.Host, i.port)
	conn, err := i.dial(ctx, "tcp", address)
	if err != nil {
		return analysis.TLSError(fmt.Sprintf("connect %s: %v", address, err))
	}

	cfg := &tls.Config{
		// #nosec G402 -- certificates are reported, not trusted; see TLSInspector.Inspect.
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS10,
	}
	if net.ParseIP(parts.Host) == nil {
		cfg.ServerName = parts.Host
	}

	tlsConn := tls.Client(conn, cfg)
	defer tlsConn.Close()

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return analysis.TLSError(fmt.Sprintf("tls handshake with %s: %v", address, err))
	}

	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return analysis.TLSError("server presented no certificate")
	}

	info := certificateInfo(state.PeerCertificates[0], state)
	i.logger.Debug("peer certificate captured",
		zap.String("host", parts.Host),
		zap.String("subject", info.Subject),
		zap.String("issuer", info.Issuer),
		zap.String("tls_version", info.TLSVersion),
	)
	return analysis.Secure(info)
}

// certificateInfo extracts the reportable metadata of a leaf certificate.
func certificateInfo(cert *x509.Certificate, state tls.ConnectionState) analysis.CertificateInfo {
	info := analysis.CertificateInfo{
		Subject:            cert.Subject.String(),
		Issuer:             cert.Issuer.String(),
		NotBefore:          cert.NotBefore.UTC().Format(time.RFC3339),
		NotAfter:           cert.NotAfter.UTC().Format(time.RFC3339),
		DNSNames:           cert.DNSNames,
		SelfSigned:         cert.Subject.String() == cert.Issuer.String(),
		SignatureAlgorithm: cert.SignatureAlgorithm.String(),
		PublicKeyAlgorithm: cert.PublicKeyAlgorithm.String(),
		TLSVersion:         tlsVersionString(state.Version),
		CipherSuite:        cipherSuiteString(state.CipherSuite),
	}
	if cert.SerialNumber != nil {
		info.SerialNumber = fmt.Sprintf("%X", cert.SerialNumber)
	}
	info.KeySize = publicKeyBits(cert)
	return info
}

func publicKeyBits(cert *x509.Certificate) int {
	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		return pub.N.BitLen()
	case *ecdsa.PublicKey:
		return pub.Curve.Params().BitSize
	case ed25519.PublicKey:
		return 256
	default:
		return 0
	}
}

// tlsVersionString converts a TLS version constant to a label.
func tlsVersionString(version uint16) string {
	switch version {
	case versionSSL30:
		return "SSL 3.0"
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("Unknown (0x%04x)", version)
	}
}

// cipherSuiteString converts a cipher suite constant to its IANA name.
func cipherSuiteString(suite uint16) string {
	if name := tls.CipherSuiteName(suite); !strings.HasPrefix(name, "0x") {
		return name
	}
	return fmt.Sprintf("Unknown (0x%04x)", suite)
}
