// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Heesho/mineport-monorepo-sub003/auction"
	"github.com/Heesho/mineport-monorepo-sub003/seat"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if cfg.ProtocolFee != "" && cfg.FeeDomain != "" {
		return ErrConflictingFeeSource
	}
	if _, err := cfg.ProtocolFeeAddress(); err != nil {
		return err
	}
	if cfg.DNSSECUpstream != "" {
		if _, _, err := net.SplitHostPort(cfg.DNSSECUpstream); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidUpstream, err)
		}
	}

	if _, err := cfg.AuctionParams(); err != nil {
		return err
	}
	for _, amount := range []string{cfg.InitialUps, cfg.TailUps, cfg.HalvingAmount, cfg.RandomnessFee} {
		if _, err := ParseAmount(amount); err != nil {
			return err
		}
	}
	if cfg.Capacity == 0 || cfg.Capacity > seat.MaxCapacity {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, cfg.Capacity)
	}
	return nil
}

// ProtocolFeeAddress parses the fixed protocol fee address. The zero
// address means none is configured.
func (c Config) ProtocolFeeAddress() (common.Address, error) {
	if c.ProtocolFee == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(c.ProtocolFee) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidFeeAddress, c.ProtocolFee)
	}
	return common.HexToAddress(c.ProtocolFee), nil
}

// AuctionParams builds and validates the seat auction parameters.
func (c Config) AuctionParams() (auction.Params, error) {
	mult, err := ParseAmount(c.PriceMultiplier)
	if err != nil {
		return auction.Params{}, err
	}
	minInit, err := ParseAmount(c.MinInitPrice)
	if err != nil {
		return auction.Params{}, err
	}
	p := auction.Params{EpochPeriod: c.EpochPeriod, PriceMultiplier: mult, MinInitPrice: minInit}
	if err := p.Validate(); err != nil {
		return auction.Params{}, err
	}
	return p, nil
}
