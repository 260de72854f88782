package randomness

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// HKDFInfo is the info string used to derive values from proofs.
const HKDFInfo = "rig-randomness"

// Proof lets anyone holding the provider's public key check a delivered value.
type Proof struct {
	ID        RequestID
	Seed      []byte        // Keccak-256(salt || id)
	Signature *ec.Signature // secp256k1 signature over Seed
	Value     *uint256.Int  // HKDF-SHA256(signature, Seed, HKDFInfo)
}

type signedRequest struct {
	cb   Callback
	seed []byte
}

// SignedProvider is a local verifiable randomness provider. Each request
// gets a seed; fulfilling it signs the seed with the provider key and
// derives the value from the signature.
type SignedProvider struct {
	mu      sync.Mutex
	key     *ec.PrivateKey
	fee     *uint256.Int
	salt    []byte
	nextID  RequestID
	pending map[RequestID]signedRequest
	account common.Address
}

// Compile-time interface check.
var _ Provider = (*SignedProvider)(nil)

// NewSignedProvider creates a provider signing with key and charging fee
// per request. salt separates seed spaces of different providers.
func NewSignedProvider(key *ec.PrivateKey, fee *uint256.Int, salt []byte) (*SignedProvider, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: key", ErrNilParam)
	}
	if fee == nil {
		fee = new(uint256.Int)
	}
	return &SignedProvider{
		key:     key,
		fee:     fee.Clone(),
		salt:    append([]byte(nil), salt...),
		nextID:  1,
		pending: make(map[RequestID]signedRequest),
		account: accountOf(key.PubKey()),
	}, nil
}

// PublicKey returns the key proofs verify against.
func (p *SignedProvider) PublicKey() *ec.PublicKey { return p.key.PubKey() }

// Fee implements Provider.
func (p *SignedProvider) Fee(_ context.Context) (*uint256.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fee.Clone(), nil
}

// SetFee changes the fee charged for future requests.
func (p *SignedProvider) SetFee(fee *uint256.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fee = fee.Clone()
}

// FeeAccount implements Provider. It is the Ethereum-style address of the
// provider key.
func (p *SignedProvider) FeeAccount() common.Address { return p.account }

// Request implements Provider. The callback is invoked later by Fulfill.
func (p *SignedProvider) Request(ctx context.Context, cb Callback, fee *uint256.Int) (RequestID, error) {
	if cb == nil {
		return 0, fmt.Errorf("%w: callback", ErrNilParam)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if fee == nil || !fee.Eq(p.fee) {
		return 0, fmt.Errorf("%w: want %s", ErrIncorrectFee, p.fee.Dec())
	}
	id := p.nextID
	p.nextID++
	p.pending[id] = signedRequest{cb: cb, seed: deriveSeed(p.salt, id)}
	return id, nil
}

// PendingIDs returns outstanding request IDs in ascending order.
func (p *SignedProvider) PendingIDs() []RequestID {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]RequestID, 0, len(p.pending))
	for id := range p.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Fulfill produces the value for id and delivers it to the requester. It
// must not be called while the requester holds its own lock. If the
// callback fails the request stays pending.
func (p *SignedProvider) Fulfill(ctx context.Context, id RequestID) (*Proof, error) {
	p.mu.Lock()
	req, ok := p.pending[id]
	if ok {
		delete(p.pending, id)
	}
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRequest, id)
	}

	proof, err := p.prove(id, req.seed)
	if err != nil {
		p.requeue(id, req)
		return nil, err
	}
	if err := req.cb.OnRandomness(ctx, id, proof.Value); err != nil {
		p.requeue(id, req)
		return proof, fmt.Errorf("deliver request %d: %w", id, err)
	}
	return proof, nil
}

// FulfillAll fulfills every outstanding request in ID order.
func (p *SignedProvider) FulfillAll(ctx context.Context) ([]*Proof, error) {
	var proofs []*Proof
	var errs []error
	for _, id := range p.PendingIDs() {
		proof, err := p.Fulfill(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		proofs = append(proofs, proof)
	}
	return proofs, errors.Join(errs...)
}

func (p *SignedProvider) requeue(id RequestID, req signedRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[id] = req
}

func (p *SignedProvider) prove(id RequestID, seed []byte) (*Proof, error) {
	sig, err := p.key.Sign(seed)
	if err != nil {
		return nil, fmt.Errorf("sign seed: %w", err)
	}
	value, err := deriveValue(sig, seed)
	if err != nil {
		return nil, err
	}
	return &Proof{ID: id, Seed: seed, Signature: sig, Value: value}, nil
}

// VerifyProof checks that proof was produced by pub for its seed.
func VerifyProof(pub *ec.PublicKey, salt []byte, proof *Proof) error {
	if pub == nil || proof == nil || proof.Signature == nil || proof.Value == nil {
		return fmt.Errorf("%w: proof", ErrNilParam)
	}
	seed := deriveSeed(salt, proof.ID)
	if string(seed) != string(proof.Seed) {
		return fmt.Errorf("%w: seed mismatch", ErrInvalidProof)
	}
	if !proof.Signature.Verify(seed, pub) {
		return fmt.Errorf("%w: signature", ErrInvalidProof)
	}
	value, err := deriveValue(proof.Signature, seed)
	if err != nil {
		return err
	}
	if !value.Eq(proof.Value) {
		return fmt.Errorf("%w: value mismatch", ErrInvalidProof)
	}
	return nil
}

// accountOf returns the last 20 bytes of Keccak-256 over the uncompressed
// public key without its prefix byte.
func accountOf(pub *ec.PublicKey) common.Address {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub.Uncompressed()[1:])
	return common.BytesToAddress(h.Sum(nil)[12:])
}

// deriveSeed returns Keccak-256(salt || big-endian id).
func deriveSeed(salt []byte, id RequestID) []byte {
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], uint64(id))
	h := sha3.NewLegacyKeccak256()
	h.Write(salt)
	h.Write(idBytes[:])
	return h.Sum(nil)
}

func deriveValue(sig *ec.Signature, seed []byte) (*uint256.Int, error) {
	r := hkdf.New(sha256.New, sig.Serialize(), seed, []byte(HKDFInfo))
	var out [32]byte
	if _, err := io.ReadFull(r, out[:]); err != nil {
		return nil, fmt.Errorf("hkdf derive: %w", err)
	}
	return new(uint256.Int).SetBytes32(out[:]), nil
}
