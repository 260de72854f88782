// Package randomness adapts an external verifiable-randomness provider to
// the rigs.
//
// A request and its callback are two separate entry points. At request time
// the gateway records the Tag the request was issued for; when the value
// arrives it asks the owning engine whether that tag is still current and
// applies the value only then. Stale callbacks are expected, not errors: the
// state they were requested for has been superseded by a later settle.
package randomness

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/Heesho/mineport-monorepo-sub003/ledger"
)

// RequestID correlates a request with its callback.
type RequestID uint64

// Tag is the state a request was issued for.
type Tag struct {
	Target  uint64         // Slot index or instance ID
	Epoch   uint64         // Epoch the request belongs to
	Account common.Address // Beneficiary, when the effect pays someone
}

// Callback receives provider responses.
type Callback interface {
	OnRandomness(ctx context.Context, id RequestID, value *uint256.Int) error
}

// Provider is the external randomness source. The fee is paid to
// FeeAccount in the native asset by the issuing action's ledger batch;
// Request only checks that fee matches Fee and must not invoke cb before
// returning.
type Provider interface {
	Fee(ctx context.Context) (*uint256.Int, error)
	FeeAccount() common.Address
	Request(ctx context.Context, cb Callback, fee *uint256.Int) (RequestID, error)
}

// Consumer is the engine side of the gateway.
type Consumer interface {
	// TagCurrent reports whether tag still matches live state.
	TagCurrent(tag Tag) bool
	// ApplyRandomness applies value for a current tag.
	ApplyRandomness(ctx context.Context, tag Tag, value *uint256.Int) error
}

// Outcome is the result of delivering a callback.
type Outcome int

const (
	// Applied means the consumer applied the value.
	Applied Outcome = iota
	// Unknown means no request with that ID was pending.
	Unknown
	// Stale means the tagged state was superseded; the value was discarded.
	Stale
	// Failed means the consumer returned an error; the request stays pending.
	Failed
)

// String returns a short name for the outcome.
func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Unknown:
		return "unknown"
	case Stale:
		return "stale"
	case Failed:
		return "failed"
	default:
		return "invalid"
	}
}

// Gateway tracks outstanding requests of one engine. It is not safe for
// concurrent use; the owning engine serializes access.
type Gateway struct {
	provider Provider
	pending  map[RequestID]Tag
	log      logrus.FieldLogger
}

// NewGateway creates a gateway over provider. A nil provider disables
// randomness: Fee and Request fail.
func NewGateway(provider Provider, log logrus.FieldLogger) *Gateway {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Gateway{provider: provider, pending: make(map[RequestID]Tag), log: log}
}

// Enabled reports whether a provider is configured.
func (g *Gateway) Enabled() bool { return g.provider != nil }

// Fee returns the provider's current fee.
func (g *Gateway) Fee(ctx context.Context) (*uint256.Int, error) {
	if g.provider == nil {
		return nil, fmt.Errorf("%w: provider", ErrNilParam)
	}
	return g.provider.Fee(ctx)
}

// Charge adds the payment of fee from payer to the provider to b. Nothing
// moves until b is applied, so an action that fails to settle pays nothing.
func (g *Gateway) Charge(b *ledger.Batch, payer common.Address, fee *uint256.Int) error {
	if g.provider == nil {
		return fmt.Errorf("%w: provider", ErrNilParam)
	}
	b.AddTransfer(ledger.Native, payer, g.provider.FeeAccount(), fee)
	return nil
}

// Request issues a request paid with fee. The request is not tracked until
// Track is called, so a request whose action later fails is delivered as
// Unknown.
func (g *Gateway) Request(ctx context.Context, cb Callback, fee *uint256.Int) (RequestID, error) {
	if g.provider == nil {
		return 0, fmt.Errorf("%w: provider", ErrNilParam)
	}
	return g.provider.Request(ctx, cb, fee)
}

// Track binds id to tag once the issuing action has committed.
func (g *Gateway) Track(id RequestID, tag Tag) {
	g.pending[id] = tag
}

// Deliver resolves id and applies value through c if its tag is current.
// The request is forgotten unless the consumer fails to apply it.
func (g *Gateway) Deliver(ctx context.Context, c Consumer, id RequestID, value *uint256.Int) (Outcome, error) {
	tag, ok := g.pending[id]
	if !ok {
		g.log.WithField("request", uint64(id)).Debug("randomness callback for unknown request")
		return Unknown, nil
	}
	delete(g.pending, id)

	if !c.TagCurrent(tag) {
		g.log.WithFields(logrus.Fields{
			"request": uint64(id),
			"target":  tag.Target,
			"epoch":   tag.Epoch,
		}).Warn("randomness callback ignored")
		return Stale, nil
	}
	if value == nil {
		g.pending[id] = tag
		return Failed, fmt.Errorf("%w: value", ErrNilParam)
	}
	if err := c.ApplyRandomness(ctx, tag, value); err != nil {
		// Keep the request so the provider can redeliver.
		g.pending[id] = tag
		return Failed, err
	}
	return Applied, nil
}

// Pending returns the tag of an outstanding request.
func (g *Gateway) Pending(id RequestID) (Tag, bool) {
	tag, ok := g.pending[id]
	return tag, ok
}

// PendingCount returns the number of outstanding requests.
func (g *Gateway) PendingCount() int { return len(g.pending) }

// Tracked returns a copy of all outstanding requests.
func (g *Gateway) Tracked() map[RequestID]Tag {
	out := make(map[RequestID]Tag, len(g.pending))
	for id, tag := range g.pending {
		out[id] = tag
	}
	return out
}

// Select maps a random value to an index in [0, n) by modulo. The bias for
// n far below 2^256 is negligible and left uncorrected.
func Select(value *uint256.Int, n int) (int, error) {
	if n <= 0 {
		return 0, ErrEmptyTable
	}
	if value == nil {
		return 0, fmt.Errorf("%w: value", ErrNilParam)
	}
	idx := new(uint256.Int).Mod(value, uint256.NewInt(uint64(n)))
	return int(idx.Uint64()), nil
}
