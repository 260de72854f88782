// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")

	// ErrInvalidValue indicates a value cannot be parsed for its key.
	ErrInvalidValue = errors.New("config: invalid value")

	// ErrInvalidFeeAddress indicates the protocol fee address is not a hex address.
	ErrInvalidFeeAddress = errors.New("config: invalid protocol fee address")

	// ErrConflictingFeeSource indicates both a fee address and a fee domain are set.
	ErrConflictingFeeSource = errors.New("config: protocol fee address and fee domain are mutually exclusive")

	// ErrInvalidUpstream indicates the DNSSEC upstream is not host:port.
	ErrInvalidUpstream = errors.New("config: invalid DNSSEC upstream")

	// ErrInvalidCapacity indicates the seat capacity is out of range.
	ErrInvalidCapacity = errors.New("config: invalid seat capacity")

	// ErrParseEnv indicates an environment override could not be applied.
	ErrParseEnv = errors.New("config: parse environment")
)
