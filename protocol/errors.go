package protocol

import "errors"

var (
	// ErrEmptyDomain indicates no fee domain was configured.
	ErrEmptyDomain = errors.New("protocol: empty fee domain")

	// ErrDNSLookupFailed indicates a DNS query returned an error or no answer.
	ErrDNSLookupFailed = errors.New("protocol: DNS lookup failed")

	// ErrDNSSECValidationFailed indicates the upstream did not authenticate the answer.
	ErrDNSSECValidationFailed = errors.New("protocol: DNSSEC validation failed")

	// ErrNoFeeRecord indicates none of the TXT records carried the rigfee= prefix.
	ErrNoFeeRecord = errors.New("protocol: no rigfee record")

	// ErrInvalidFeeAddress indicates a rigfee= record did not hold a valid address.
	ErrInvalidFeeAddress = errors.New("protocol: invalid fee address")
)
