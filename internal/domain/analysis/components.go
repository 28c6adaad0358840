package analysis

import "strings"

// URLComponents is the structural breakdown of a candidate URL.
//
// Subdomain, RegistrableDomain and PublicSuffix are only populated when a
// public suffix could be resolved for Host; otherwise Host is authoritative.
type URLComponents struct {
	Scheme            string `json:"scheme" yaml:"scheme"`
	Host              string `json:"host" yaml:"host"`
	Path              string `json:"path" yaml:"path"`
	Query             string `json:"query" yaml:"query"`
	Fragment          string `json:"fragment" yaml:"fragment"`
	Subdomain         string `json:"subdomain" yaml:"subdomain"`
	RegistrableDomain string `json:"registrable_domain" yaml:"registrable_domain"`
	PublicSuffix      string `json:"public_suffix" yaml:"public_suffix"`
}

// HasSuffix reports whether the host was split against the public suffix list.
func (c URLComponents) HasSuffix() bool {
	return c.PublicSuffix != ""
}

// Reconstruct joins the non-empty split parts back into a host name.
// It equals Host whenever HasSuffix is true.
func (c URLComponents) Reconstruct() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Subdomain, c.RegistrableDomain, c.PublicSuffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// Domain returns the registrable domain with its suffix (e.g. "example.co.uk").
func (c URLComponents) Domain() string {
	if !c.HasSuffix() {
		return ""
	}
	return c.RegistrableDomain + "." + c.PublicSuffix
}
