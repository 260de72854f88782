// Package protocol resolves the protocol fee address that every rig pays a
// share to. The address is looked up on every split, so a change takes
// effect on the next action without restarting any engine.
package protocol

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// FeeResolver returns the current protocol fee address. The zero address
// means no protocol fee is taken.
type FeeResolver interface {
	ProtocolFeeAddress(ctx context.Context) (common.Address, error)
}

// StaticResolver holds a fee address in memory. It is safe for concurrent use.
type StaticResolver struct {
	mu   sync.RWMutex
	addr common.Address
}

// Compile-time interface check.
var _ FeeResolver = (*StaticResolver)(nil)

// NewStaticResolver returns a resolver that always answers addr.
func NewStaticResolver(addr common.Address) *StaticResolver {
	return &StaticResolver{addr: addr}
}

// ProtocolFeeAddress implements FeeResolver.
func (r *StaticResolver) ProtocolFeeAddress(_ context.Context) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.addr, nil
}

// Set replaces the fee address.
func (r *StaticResolver) Set(addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addr = addr
}

// TXTResolver looks up TXT records. It allows tests to mock DNS.
type TXTResolver interface {
	LookupTXT(name string) ([]string, error)
}

type defaultTXTResolver struct{}

func (defaultTXTResolver) LookupTXT(name string) ([]string, error) {
	return net.LookupTXT(name)
}

// DefaultTXTResolver uses the system resolver through the net package.
var DefaultTXTResolver TXTResolver = defaultTXTResolver{}

// FeeRecordPrefix marks the TXT record holding the fee address.
const FeeRecordPrefix = "rigfee="

// DNSFeeResolver reads the fee address from the _rigfee.{domain} TXT record,
// e.g. "rigfee=0x00000000000000000000000000000000000000fe".
type DNSFeeResolver struct {
	Domain   string
	Resolver TXTResolver
}

// Compile-time interface check.
var _ FeeResolver = (*DNSFeeResolver)(nil)

// NewDNSFeeResolver creates a resolver for domain. A nil resolver falls back
// to DefaultTXTResolver.
func NewDNSFeeResolver(domain string, resolver TXTResolver) *DNSFeeResolver {
	if resolver == nil {
		resolver = DefaultTXTResolver
	}
	return &DNSFeeResolver{Domain: domain, Resolver: resolver}
}

// RecordName returns the DNS name queried for the fee record.
func (r *DNSFeeResolver) RecordName() string {
	return "_rigfee." + strings.TrimSuffix(r.Domain, ".")
}

// ProtocolFeeAddress implements FeeResolver. It is not cached.
func (r *DNSFeeResolver) ProtocolFeeAddress(ctx context.Context) (common.Address, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, err
	}
	if r.Domain == "" {
		return common.Address{}, ErrEmptyDomain
	}

	name := r.RecordName()
	txts, err := r.Resolver.LookupTXT(name)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: TXT lookup for %s: %w", ErrDNSLookupFailed, name, err)
	}
	return ParseFeeRecord(txts)
}

// ParseFeeRecord extracts the address from the first rigfee= record.
func ParseFeeRecord(txts []string) (common.Address, error) {
	for _, txt := range txts {
		txt = strings.TrimSpace(txt)
		if !strings.HasPrefix(txt, FeeRecordPrefix) {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(txt, FeeRecordPrefix))
		if !common.IsHexAddress(value) {
			return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidFeeAddress, value)
		}
		return common.HexToAddress(value), nil
	}
	return common.Address{}, ErrNoFeeRecord
}
