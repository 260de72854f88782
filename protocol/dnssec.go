package protocol

import (
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	// DefaultUpstream is the recursive resolver used when none is configured.
	DefaultUpstream = "8.8.8.8:53"

	dnssecTimeout = 10 * time.Second
	edns0BufSize  = 4096
)

// DNSSECResolver implements TXTResolver with DNSSEC validation delegated to
// the upstream recursive resolver. Answers without the AD flag are rejected.
type DNSSECResolver struct {
	Upstream string
	Timeout  time.Duration
}

// Compile-time interface check.
var _ TXTResolver = (*DNSSECResolver)(nil)

// NewDNSSECResolver creates a resolver querying upstream, or DefaultUpstream
// when upstream is empty.
func NewDNSSECResolver(upstream string) *DNSSECResolver {
	if upstream == "" {
		upstream = DefaultUpstream
	}
	return &DNSSECResolver{Upstream: upstream, Timeout: dnssecTimeout}
}

// query sends name with the DNSSEC OK bit set and accepts the response only
// if the upstream marked it authenticated.
func (r *DNSSECResolver) query(name string, qtype uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype) // upstreams expect the trailing dot
	msg.RecursionDesired = true
	msg.SetEdns0(edns0BufSize, true) // DO (DNSSEC OK) flag

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = dnssecTimeout
	}
	client := &dns.Client{Timeout: timeout}
	resp, _, err := client.Exchange(msg, r.Upstream)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s %s: %w",
			ErrDNSLookupFailed, name, dns.TypeToString[qtype], err)
	}
	if resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError {
		return nil, fmt.Errorf("%w: query %s %s: rcode %s",
			ErrDNSLookupFailed, name, dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])
	}
	// NXDOMAIN still carries AD when the denial was validated.
	// Without AD the upstream did not validate the answer.
	if !resp.AuthenticatedData {
		return nil, fmt.Errorf("%w: AD flag not set for %s %s",
			ErrDNSSECValidationFailed, name, dns.TypeToString[qtype])
	}
	return resp, nil
}

// LookupTXT implements TXTResolver. Split character-strings are joined.
func (r *DNSSECResolver) LookupTXT(name string) ([]string, error) {
	resp, err := r.query(name, dns.TypeTXT)
	if err != nil {
		return nil, err
	}

	var txts []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			txts = append(txts, strings.Join(txt.Txt, ""))
		}
	}
	if len(txts) == 0 {
		return nil, fmt.Errorf("%w: no TXT records for %s", ErrDNSLookupFailed, name)
	}
	return txts, nil
}
