package randomness

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MockProvider is a test double for Provider.
// All function fields must be set before the corresponding method is called.
type MockProvider struct {
	Account   common.Address
	FeeFn     func(ctx context.Context) (*uint256.Int, error)
	RequestFn func(ctx context.Context, cb Callback, fee *uint256.Int) (RequestID, error)
}

func (m *MockProvider) Fee(ctx context.Context) (*uint256.Int, error) {
	return m.FeeFn(ctx)
}
func (m *MockProvider) FeeAccount() common.Address { return m.Account }
func (m *MockProvider) Request(ctx context.Context, cb Callback, fee *uint256.Int) (RequestID, error) {
	return m.RequestFn(ctx, cb, fee)
}
