// Package maci implements the MaciState engine: the authoritative
// in-memory state a coordinator process keeps for a single voting round,
// and the operations that mirror the on-chain contract and feed the
// zk-SNARK circuits' witnesses.
package maci

import (
	"fmt"
	"math/big"

	"go.vocdoni.io/dvote/log"

	"github.com/therealyingtong/maci/crypto/bjj"
	"github.com/therealyingtong/maci/crypto/cipher"
	"github.com/therealyingtong/maci/domain"
	"github.com/therealyingtong/maci/field"
	"github.com/therealyingtong/maci/merkletree"
)

// User is one signed-up participant's mutable slot. StateIndex is implicit:
// User at users[k] has 1-based stateIndex k+1.
type User struct {
	PubKey             bjj.PubKey
	Votes              field.Slice
	VoiceCreditBalance field.F
	Nonce              field.F
}

func newUser(pubKey bjj.PubKey, initialVoiceCreditBalance int, numVoteOptions int) User {
	votes := make(field.Slice, numVoteOptions)
	for i := range votes {
		votes[i] = field.Zero()
	}
	return User{
		PubKey:             pubKey,
		Votes:              votes,
		VoiceCreditBalance: field.NewInt(int64(initialVoiceCreditBalance)),
		Nonce:              field.Zero(),
	}
}

func (u User) copy() User {
	votes := make(field.Slice, len(u.Votes))
	copy(votes, u.Votes)
	return User{PubKey: u.PubKey, Votes: votes, VoiceCreditBalance: u.VoiceCreditBalance, Nonce: u.Nonce}
}

// stateLeaf builds the StateLeaf this user currently hashes to.
func (u User) stateLeaf(cfg Config) domain.StateLeaf {
	return domain.StateLeaf{
		PubKey:             u.PubKey,
		VoteOptionTreeRoot: voteOptionTreeRoot(u.Votes, cfg.VoteOptionTreeDepth),
		VoiceCreditBalance: u.VoiceCreditBalance,
		Nonce:              u.Nonce,
	}
}

func voteOptionTree(votes field.Slice, depth int) *merkletree.Tree {
	t := merkletree.New(depth, field.Zero())
	for _, v := range votes {
		if err := t.Insert(v); err != nil {
			// votes is always sized exactly 2^depth by newUser/Config.NumVoteOptions.
			panic(fmt.Sprintf("maci: vote-option tree capacity mismatch: %v", err))
		}
	}
	return t
}

func voteOptionTreeRoot(votes field.Slice, depth int) field.F {
	return voteOptionTree(votes, depth).Root()
}

// MaciState is the authoritative in-memory state of a single coordinator
// round. It exclusively owns users, messages, encPubKeys and
// zerothStateLeaf; Merkle trees are never stored, only recomputed on
// demand from these collections.
type MaciState struct {
	coordinator     bjj.Keypair
	config          Config
	users           []User
	messages        []domain.Message
	encPubKeys      []bjj.PubKey
	zerothStateLeaf domain.StateLeaf
}

// NewMaciState constructs an empty MaciState for the given configuration
// and coordinator keypair. The zeroth state leaf starts out blank.
func NewMaciState(cfg Config, coordinator bjj.Keypair) (*MaciState, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &MaciState{
		coordinator:     coordinator,
		config:          cfg,
		zerothStateLeaf: domain.BlankStateLeaf(cfg.VoteOptionTreeDepth),
	}, nil
}

// CoordinatorPubKey returns the coordinator's public key.
func (m *MaciState) CoordinatorPubKey() bjj.PubKey { return m.coordinator.Pub }

// Config returns the configuration this state was constructed with.
func (m *MaciState) Config() Config { return m.config }

// NumSignUps returns the number of users signed up so far.
func (m *MaciState) NumSignUps() int { return len(m.users) }

// NumMessages returns the number of messages published so far.
func (m *MaciState) NumMessages() int { return len(m.messages) }

// SignUp appends a new user slot and returns its 1-based stateIndex.
func (m *MaciState) SignUp(pubKey bjj.PubKey, initialVoiceCreditBalance int) (int, error) {
	capacity := (1 << m.config.StateTreeDepth) - 1 // leaf 0 is reserved for the zeroth leaf
	if len(m.users) >= capacity {
		log.Warnw("maci: sign-up rejected, state tree full", "capacity", capacity)
		return 0, fmt.Errorf("%w: state tree holds at most %d users", ErrCapacityExceeded, capacity)
	}
	m.users = append(m.users, newUser(pubKey, initialVoiceCreditBalance, m.config.NumVoteOptions()))
	return len(m.users), nil
}

// PublishMessage appends message and its ephemeral public key to the
// committed message log. No validity checking happens here: even
// messages that will later be rejected by ProcessMessage are recorded,
// so the message tree stays a faithful record of every submission.
func (m *MaciState) PublishMessage(message domain.Message, encPubKey bjj.PubKey) error {
	capacity := 1 << m.config.MessageTreeDepth
	if len(m.messages) >= capacity {
		log.Warnw("maci: publish-message rejected, message tree full", "capacity", capacity)
		return fmt.Errorf("%w: message tree holds at most %d messages", ErrCapacityExceeded, capacity)
	}
	m.messages = append(m.messages, message)
	m.encPubKeys = append(m.encPubKeys, encPubKey)
	return nil
}

// ProcessMessage decrypts and applies the message at index i, reporting
// whether it was accepted. Rejection is never surfaced as an error: a
// malformed command and a validly-encrypted invalid one are
// indistinguishable by design, so both simply return false with no state
// change.
func (m *MaciState) ProcessMessage(i int) bool {
	if i < 0 || i >= len(m.messages) {
		return false
	}
	cmd, sig := m.decryptMessage(i)
	return m.applyCommand(cmd, sig)
}

func (m *MaciState) decryptMessage(i int) (domain.Command, bjj.Signature) {
	sharedKey := bjj.ECDH(m.coordinator.Priv, m.encPubKeys[i])
	msg := m.messages[i]
	ct := cipher.Ciphertext{IV: msg.IV, Data: msg.Data[:]}
	plaintext := cipher.Decrypt(ct, sharedKey)

	var vec [10]field.F
	copy(vec[:], plaintext)
	return domain.SplitPlaintextVector(vec)
}

// applyCommand checks every validity predicate in turn and, if all pass,
// atomically updates the addressed user's slot.
func (m *MaciState) applyCommand(cmd domain.Command, sig bjj.Signature) bool {
	stateIndex, ok := intFromField(cmd.StateIndex)
	if !ok || stateIndex < 1 || stateIndex > len(m.users) {
		return false
	}
	user := &m.users[stateIndex-1]

	if !bjj.Verify(user.PubKey, cmd.Hash(), sig) {
		return false
	}
	if !cmd.Nonce.Equal(user.Nonce.Add(field.One())) {
		return false
	}

	voteOptionIndex, ok := intFromField(cmd.VoteOptionIndex)
	if !ok || voteOptionIndex > m.config.MaxVoteOptionIndex || voteOptionIndex >= len(user.Votes) {
		return false
	}

	prevVote := user.Votes[voteOptionIndex]
	newBalance, ok := quadraticBalance(user.VoiceCreditBalance, prevVote, cmd.NewVoteWeight)
	if !ok {
		return false
	}

	user.Votes[voteOptionIndex] = cmd.NewVoteWeight
	user.VoiceCreditBalance = newBalance
	user.Nonce = cmd.Nonce
	user.PubKey = cmd.NewPubKey
	return true
}

// intFromField converts a field element believed to hold a small
// non-negative integer (an index or a nonce) to an int, failing rather
// than wrapping if the element is not actually small. Any field element
// produced by decrypting with the wrong key will fail this check with
// overwhelming probability, which is exactly the "message invalid"
// outcome it should produce.
func intFromField(f field.F) (int, bool) {
	bi := f.BigInt()
	if !bi.IsInt64() {
		return 0, false
	}
	v := bi.Int64()
	if v < 0 || v > (1<<31) {
		return 0, false
	}
	return int(v), true
}

// quadraticBalance computes balance + prev^2 - newWeight^2 as a signed
// integer rather than a modular subtraction, so that a result that would
// be negative is detected directly instead of silently wrapping around
// to a value near p.
func quadraticBalance(balance, prevVote, newWeight field.F) (field.F, bool) {
	result := new(big.Int).Set(balance.BigInt())
	prevSq := new(big.Int).Mul(prevVote.BigInt(), prevVote.BigInt())
	weightSq := new(big.Int).Mul(newWeight.BigInt(), newWeight.BigInt())
	result.Add(result, prevSq)
	result.Sub(result, weightSq)
	if result.Sign() < 0 {
		return field.F{}, false
	}
	return field.New(result), true
}

// BatchProcessMessage processes every message in [startIndex,
// startIndex+batchSize) in order, then replaces the zeroth state leaf
// with randomStateLeaf. Indices at or beyond NumMessages are skipped,
// allowing a short final batch.
func (m *MaciState) BatchProcessMessage(startIndex, batchSize int, randomStateLeaf domain.StateLeaf) {
	for i := startIndex; i < startIndex+batchSize; i++ {
		if i >= len(m.messages) {
			break
		}
		m.ProcessMessage(i)
	}
	m.zerothStateLeaf = randomStateLeaf
}

// ComputeCumulativeVoteTally sums votes across users at positions
// 0..startIndex-2 inclusive (0-based positions in the users slice),
// returning an all-zero vector when startIndex <= 1.
func (m *MaciState) ComputeCumulativeVoteTally(startIndex int) field.Slice {
	tally := zeroTally(m.config.NumVoteOptions())
	if startIndex <= 1 {
		return tally
	}
	for i := 0; i < startIndex-1 && i < len(m.users); i++ {
		addVotesInto(tally, m.users[i].Votes)
	}
	return tally
}

// ComputeBatchVoteTally sums votes for the state-tree leaf positions
// startIndex .. startIndex+batchSize-1, using the same leaf-to-user
// mapping as stateLeafAt and stateTree: leaf 0 is the zeroth sentinel
// and contributes nothing, leaf p >= 1 is users[p-1], and any leaf at
// or beyond NumSignUps contributes zero.
func (m *MaciState) ComputeBatchVoteTally(startIndex, batchSize int) (field.Slice, error) {
	if batchSize <= 0 || startIndex%batchSize != 0 {
		return nil, fmt.Errorf("%w: startIndex %d is not a multiple of batchSize %d", ErrInvariantViolation, startIndex, batchSize)
	}
	if startIndex < 0 || startIndex >= len(m.users) {
		return nil, fmt.Errorf("%w: startIndex %d out of range for %d users", ErrInvariantViolation, startIndex, len(m.users))
	}

	tally := zeroTally(m.config.NumVoteOptions())
	for p := startIndex; p < startIndex+batchSize; p++ {
		if p == 0 {
			continue
		}
		userIndex := p - 1
		if userIndex >= len(m.users) {
			continue
		}
		addVotesInto(tally, m.users[userIndex].Votes)
	}
	return tally, nil
}

func zeroTally(n int) field.Slice {
	tally := make(field.Slice, n)
	for i := range tally {
		tally[i] = field.Zero()
	}
	return tally
}

func addVotesInto(acc, votes field.Slice) {
	for i := range acc {
		acc[i] = acc[i].Add(votes[i])
	}
}

// Copy returns a deep clone: mutating it never affects the receiver. The
// circuit-input builders rely on this to simulate forward without
// touching the caller's authoritative state.
func (m *MaciState) Copy() *MaciState {
	clone := &MaciState{
		coordinator:     m.coordinator,
		config:          m.config,
		zerothStateLeaf: m.zerothStateLeaf,
	}
	clone.users = make([]User, len(m.users))
	for i, u := range m.users {
		clone.users[i] = u.copy()
	}
	clone.messages = append([]domain.Message(nil), m.messages...)
	clone.encPubKeys = append([]bjj.PubKey(nil), m.encPubKeys...)
	return clone
}

// stateTree rebuilds the state tree from scratch: leaf 0 is the zeroth
// state leaf, leaves 1..NumSignUps are user leaves in sign-up order, and
// the remainder are implicitly blank.
func (m *MaciState) stateTree() (*merkletree.Tree, error) {
	blank := domain.BlankStateLeaf(m.config.VoteOptionTreeDepth).Hash()
	t := merkletree.New(m.config.StateTreeDepth, blank)
	if err := t.Insert(m.zerothStateLeaf.Hash()); err != nil {
		return nil, fmt.Errorf("%w: zeroth leaf: %v", ErrInvariantViolation, err)
	}
	for _, u := range m.users {
		if err := t.Insert(u.stateLeaf(m.config).Hash()); err != nil {
			return nil, fmt.Errorf("%w: user leaf: %v", ErrInvariantViolation, err)
		}
	}
	return t, nil
}

// messageTree rebuilds the message tree from scratch, zeroed with the
// nothing-up-my-sleeve constant rather than field.Zero() so its empty
// slots carry no trapdoor.
func (m *MaciState) messageTree() (*merkletree.Tree, error) {
	t := merkletree.New(m.config.MessageTreeDepth, field.NothingUpMySleeve)
	for _, msg := range m.messages {
		if err := t.Insert(msg.Hash()); err != nil {
			return nil, fmt.Errorf("%w: message leaf: %v", ErrInvariantViolation, err)
		}
	}
	return t, nil
}

// GenStateRoot returns the current state-tree root.
func (m *MaciState) GenStateRoot() (field.F, error) {
	t, err := m.stateTree()
	if err != nil {
		return field.F{}, err
	}
	return t.Root(), nil
}

// GenMessageRoot returns the current message-tree root.
func (m *MaciState) GenMessageRoot() (field.F, error) {
	t, err := m.messageTree()
	if err != nil {
		return field.F{}, err
	}
	return t.Root(), nil
}
