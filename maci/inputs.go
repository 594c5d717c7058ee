package maci

import (
	"fmt"

	"github.com/therealyingtong/maci/crypto/bjj"
	"github.com/therealyingtong/maci/crypto/poseidon"
	"github.com/therealyingtong/maci/domain"
	"github.com/therealyingtong/maci/field"
	"github.com/therealyingtong/maci/merkletree"
)

// PubKeyInputs is the decimal-string wire form of a BabyJubJub point.
type PubKeyInputs struct {
	X field.F `json:"x"`
	Y field.F `json:"y"`
}

func pubKeyInputs(pk bjj.PubKey) PubKeyInputs {
	return PubKeyInputs{X: pk.X, Y: pk.Y}
}

// MessageInputs is the decimal-string wire form of a Message.
type MessageInputs struct {
	IV   field.F     `json:"iv"`
	Data [10]field.F `json:"data"`
}

func messageInputs(msg domain.Message) MessageInputs {
	return MessageInputs{IV: msg.IV, Data: msg.Data}
}

// StateLeafInputs is the decimal-string wire form of a StateLeaf.
type StateLeafInputs struct {
	PubKey             PubKeyInputs `json:"pubKey"`
	VoteOptionTreeRoot field.F      `json:"voteOptionTreeRoot"`
	VoiceCreditBalance field.F      `json:"voiceCreditBalance"`
	Nonce              field.F      `json:"nonce"`
}

func stateLeafInputs(leaf domain.StateLeaf) StateLeafInputs {
	return StateLeafInputs{
		PubKey:             pubKeyInputs(leaf.PubKey),
		VoteOptionTreeRoot: leaf.VoteOptionTreeRoot,
		VoiceCreditBalance: leaf.VoiceCreditBalance,
		Nonce:              leaf.Nonce,
	}
}

func indicesToField(indices []int) []field.F {
	out := make([]field.F, len(indices))
	for i, idx := range indices {
		out[i] = field.NewInt(int64(idx))
	}
	return out
}

// UpdateStateTreeCircuitInputs is the witness for one message's state
// transition: the message tree path for the message itself, the state
// tree path for the addressed user, the vote-option tree path for the
// addressed option, and the previous vote weight at that option.
type UpdateStateTreeCircuitInputs struct {
	CoordinatorPubKey PubKeyInputs `json:"coordinatorPubKey"`
	EncPubKey         PubKeyInputs `json:"encPubKey"`
	MessageIndex      field.F      `json:"messageIndex"`
	Message           MessageInputs `json:"message"`

	MessageTreeRoot         field.F   `json:"messageTreeRoot"`
	MessageTreePathElements []field.F `json:"messageTreePathElements"`
	MessageTreePathIndices  []field.F `json:"messageTreePathIndices"`

	StateTreeRoot         field.F   `json:"stateTreeRoot"`
	StateTreePathElements []field.F `json:"stateTreePathElements"`
	StateTreePathIndices  []field.F `json:"stateTreePathIndices"`
	StateIndex            field.F   `json:"stateIndex"`
	StateLeaf             StateLeafInputs `json:"stateLeaf"`

	VoteOptionTreeRoot         field.F   `json:"voteOptionTreeRoot"`
	VoteOptionTreePathElements []field.F `json:"voteOptionTreePathElements"`
	VoteOptionTreePathIndices  []field.F `json:"voteOptionTreePathIndices"`
	VoteOptionIndex            field.F   `json:"voteOptionIndex"`
	PrevVoteWeight             field.F   `json:"prevVoteWeight"`
}

// GenUpdateStateTreeCircuitInputs builds the witness for message i's
// state transition without mutating m. An out-of-range stateIndex or
// voteOptionIndex in the decrypted command still produces a well-formed
// witness, pointed at leaf 0 — the circuit itself is responsible for
// rejecting it, this builder only has to describe the pre-image
// faithfully. It reads that leaf via stateLeafAt rather than fabricating
// a blank one, since leaf 0 is the zeroth state leaf (randomized after
// every processed batch, not blank) and the witness must match the
// sibling path returned alongside it.
func (m *MaciState) GenUpdateStateTreeCircuitInputs(i int) (UpdateStateTreeCircuitInputs, error) {
	if i < 0 || i >= len(m.messages) {
		return UpdateStateTreeCircuitInputs{}, fmt.Errorf("%w: message index %d out of range", ErrInvariantViolation, i)
	}

	msgTree, err := m.messageTree()
	if err != nil {
		return UpdateStateTreeCircuitInputs{}, err
	}
	msgPath, err := msgTree.GetPathUpdate(i)
	if err != nil {
		return UpdateStateTreeCircuitInputs{}, fmt.Errorf("%w: message path: %v", ErrInvariantViolation, err)
	}

	stTree, err := m.stateTree()
	if err != nil {
		return UpdateStateTreeCircuitInputs{}, err
	}

	cmd, _ := m.decryptMessage(i)

	stateIndex, stateIndexOK := intFromField(cmd.StateIndex)
	addressedLeafIndex := 0
	if stateIndexOK && stateIndex >= 1 && stateIndex <= len(m.users) {
		addressedLeafIndex = stateIndex
	}
	blank := domain.BlankStateLeaf(m.config.VoteOptionTreeDepth)
	leaf, votes := m.stateLeafAt(addressedLeafIndex, blank)

	statePath, err := stTree.GetPathUpdate(addressedLeafIndex)
	if err != nil {
		return UpdateStateTreeCircuitInputs{}, fmt.Errorf("%w: state path: %v", ErrInvariantViolation, err)
	}

	voTree := voteOptionTree(votes, m.config.VoteOptionTreeDepth)
	voteOptionIndex, voOK := intFromField(cmd.VoteOptionIndex)
	addressedOptionIndex := 0
	if voOK && voteOptionIndex >= 0 && voteOptionIndex < len(votes) {
		addressedOptionIndex = voteOptionIndex
	}
	voPath, err := voTree.GetPathUpdate(addressedOptionIndex)
	if err != nil {
		return UpdateStateTreeCircuitInputs{}, fmt.Errorf("%w: vote option path: %v", ErrInvariantViolation, err)
	}

	return UpdateStateTreeCircuitInputs{
		CoordinatorPubKey: pubKeyInputs(m.coordinator.Pub),
		EncPubKey:         pubKeyInputs(m.encPubKeys[i]),
		MessageIndex:      field.NewInt(int64(i)),
		Message:           messageInputs(m.messages[i]),

		MessageTreeRoot:         msgTree.Root(),
		MessageTreePathElements: msgPath.Elements,
		MessageTreePathIndices:  indicesToField(msgPath.Indices),

		StateTreeRoot:         stTree.Root(),
		StateTreePathElements: statePath.Elements,
		StateTreePathIndices:  indicesToField(statePath.Indices),
		StateIndex:            cmd.StateIndex,
		StateLeaf:             stateLeafInputs(leaf),

		VoteOptionTreeRoot:         voTree.Root(),
		VoteOptionTreePathElements: voPath.Elements,
		VoteOptionTreePathIndices:  indicesToField(voPath.Indices),
		VoteOptionIndex:            cmd.VoteOptionIndex,
		PrevVoteWeight:             votes[addressedOptionIndex],
	}, nil
}

// BatchUpdateStateTreeCircuitInputs is the witness for a full batch of
// message processing: one UpdateStateTreeCircuitInputs per message,
// recorded before that message was applied, plus the random-leaf
// overwrite of state-tree leaf 0 that closes the batch.
type BatchUpdateStateTreeCircuitInputs struct {
	MessageUpdates []UpdateStateTreeCircuitInputs `json:"messageUpdates"`

	RandomStateLeaf            StateLeafInputs `json:"randomStateLeaf"`
	FinalStateTreeRoot         field.F         `json:"finalStateTreeRoot"`
	ZerothLeafPathElements     []field.F       `json:"zerothLeafPathElements"`
	ZerothLeafPathIndices      []field.F       `json:"zerothLeafPathIndices"`
}

// GenBatchUpdateStateTreeCircuitInputs builds the witness for a full
// batch. It operates on a deep clone so the receiver is left untouched:
// for each message it records the per-message witness BEFORE applying
// that message to the clone, then advances the clone, and finally
// overwrites leaf 0 with randomStateLeaf.Hash() on the clone's state
// tree, recording the Merkle path for that overwrite.
func (m *MaciState) GenBatchUpdateStateTreeCircuitInputs(startIndex, batchSize int, randomStateLeaf domain.StateLeaf) (BatchUpdateStateTreeCircuitInputs, error) {
	clone := m.Copy()

	var updates []UpdateStateTreeCircuitInputs
	for i := startIndex; i < startIndex+batchSize; i++ {
		if i >= len(clone.messages) {
			break
		}
		update, err := clone.GenUpdateStateTreeCircuitInputs(i)
		if err != nil {
			return BatchUpdateStateTreeCircuitInputs{}, err
		}
		updates = append(updates, update)
		clone.ProcessMessage(i)
	}

	stTree, err := clone.stateTree()
	if err != nil {
		return BatchUpdateStateTreeCircuitInputs{}, err
	}
	zerothPath, err := stTree.GetPathUpdate(0)
	if err != nil {
		return BatchUpdateStateTreeCircuitInputs{}, fmt.Errorf("%w: zeroth leaf path: %v", ErrInvariantViolation, err)
	}
	if err := stTree.Update(0, randomStateLeaf.Hash()); err != nil {
		return BatchUpdateStateTreeCircuitInputs{}, fmt.Errorf("%w: random leaf update: %v", ErrInvariantViolation, err)
	}

	return BatchUpdateStateTreeCircuitInputs{
		MessageUpdates:         updates,
		RandomStateLeaf:        stateLeafInputs(randomStateLeaf),
		FinalStateTreeRoot:     stTree.Root(),
		ZerothLeafPathElements: zerothPath.Elements,
		ZerothLeafPathIndices:  indicesToField(zerothPath.Indices),
	}, nil
}

// QuadVoteTallyCircuitInputs is the witness for tallying one batch of
// users: the batch's state leaves and raw vote vectors, the path from
// that batch's root to the full state root through the intermediate
// tree, and the current/new results commitments.
type QuadVoteTallyCircuitInputs struct {
	StateLeaves []StateLeafInputs `json:"stateLeaves"`
	VoteLeaves  []field.Slice     `json:"voteLeaves"`

	BatchTreeRoot            field.F   `json:"batchTreeRoot"`
	IntermediatePathElements []field.F `json:"intermediatePathElements"`
	IntermediatePathIndices  []field.F `json:"intermediatePathIndices"`

	CurrentResults           field.Slice `json:"currentResults"`
	CurrentResultsCommitment field.F     `json:"currentResultsCommitment"`
	CurrentResultsSalt       field.F     `json:"currentResultsSalt"`

	NewResults           field.Slice `json:"newResults"`
	NewResultsCommitment field.F     `json:"newResultsCommitment"`
	NewResultsSalt       field.F     `json:"newResultsSalt"`
}

// GenQuadVoteTallyCircuitInputs builds the witness for tallying the
// batch of users at [startIndex, startIndex+batchSize) (state-tree leaf
// positions, where position 0 is the zeroth leaf). It checks that the
// intermediate tree it builds agrees with the authoritative state root
// before returning a witness, rather than trusting the reconstruction
// silently.
func (m *MaciState) GenQuadVoteTallyCircuitInputs(startIndex, batchSize int, currentResultsSalt, newResultsSalt field.F) (QuadVoteTallyCircuitInputs, error) {
	if !isPowerOfTwo(batchSize) {
		return QuadVoteTallyCircuitInputs{}, fmt.Errorf("%w: batchSize %d is not a power of two", ErrInvariantViolation, batchSize)
	}
	batchTreeDepth := log2(batchSize)
	intermediateDepth := m.config.StateTreeDepth - batchTreeDepth
	if intermediateDepth < 0 {
		return QuadVoteTallyCircuitInputs{}, fmt.Errorf("%w: batchSize %d exceeds state tree capacity", ErrInvariantViolation, batchSize)
	}

	blank := domain.BlankStateLeaf(m.config.VoteOptionTreeDepth)
	blankBatchRoot := merkletree.New(batchTreeDepth, blank.Hash()).Root()
	intermediateTree := merkletree.New(intermediateDepth, blankBatchRoot)

	numBatches := 1 << intermediateDepth

	var requestedBatchRoot field.F
	var requestedStateLeaves []domain.StateLeaf
	var requestedVoteLeaves []field.Slice

	for b := 0; b < numBatches; b++ {
		batchStart := b * batchSize
		bt := merkletree.New(batchTreeDepth, blank.Hash())
		for j := 0; j < batchSize; j++ {
			leafIndex := batchStart + j
			leaf, votes := m.stateLeafAt(leafIndex, blank)
			if err := bt.Insert(leaf.Hash()); err != nil {
				return QuadVoteTallyCircuitInputs{}, fmt.Errorf("%w: batch tree: %v", ErrInvariantViolation, err)
			}
			if batchStart == startIndex {
				requestedStateLeaves = append(requestedStateLeaves, leaf)
				requestedVoteLeaves = append(requestedVoteLeaves, votes)
			}
		}
		root := bt.Root()
		if err := intermediateTree.Insert(root); err != nil {
			return QuadVoteTallyCircuitInputs{}, fmt.Errorf("%w: intermediate tree: %v", ErrInvariantViolation, err)
		}
		if batchStart == startIndex {
			requestedBatchRoot = root
		}
	}

	stateRoot, err := m.GenStateRoot()
	if err != nil {
		return QuadVoteTallyCircuitInputs{}, err
	}
	if !intermediateTree.Root().Equal(stateRoot) {
		return QuadVoteTallyCircuitInputs{}, fmt.Errorf("%w: intermediate tree root does not match state root", ErrInvariantViolation)
	}

	intermediatePath, err := intermediateTree.GetPathUpdate(startIndex / batchSize)
	if err != nil {
		return QuadVoteTallyCircuitInputs{}, fmt.Errorf("%w: intermediate path: %v", ErrInvariantViolation, err)
	}

	currentResults := m.ComputeCumulativeVoteTally(startIndex)
	batchTally, err := m.ComputeBatchVoteTally(startIndex, batchSize)
	if err != nil {
		return QuadVoteTallyCircuitInputs{}, err
	}
	newResults := make(field.Slice, len(currentResults))
	for i := range newResults {
		newResults[i] = currentResults[i].Add(batchTally[i])
	}

	stateLeafInputsSlice := make([]StateLeafInputs, len(requestedStateLeaves))
	for i, sl := range requestedStateLeaves {
		stateLeafInputsSlice[i] = stateLeafInputs(sl)
	}

	return QuadVoteTallyCircuitInputs{
		StateLeaves: stateLeafInputsSlice,
		VoteLeaves:  requestedVoteLeaves,

		BatchTreeRoot:            requestedBatchRoot,
		IntermediatePathElements: intermediatePath.Elements,
		IntermediatePathIndices:  indicesToField(intermediatePath.Indices),

		CurrentResults:           currentResults,
		CurrentResultsCommitment: poseidon.H(append(append(field.Slice{}, currentResults...), currentResultsSalt)...),
		CurrentResultsSalt:       currentResultsSalt,

		NewResults:           newResults,
		NewResultsCommitment: poseidon.H(append(append(field.Slice{}, newResults...), newResultsSalt)...),
		NewResultsSalt:       newResultsSalt,
	}, nil
}

// stateLeafAt returns the StateLeaf and raw vote vector at state-tree
// leaf position leafIndex: the zeroth leaf at 0, a user's leaf at
// 1..NumSignUps, and blank beyond that.
func (m *MaciState) stateLeafAt(leafIndex int, blank domain.StateLeaf) (domain.StateLeaf, field.Slice) {
	if leafIndex == 0 {
		return m.zerothStateLeaf, zeroTally(m.config.NumVoteOptions())
	}
	if leafIndex-1 < len(m.users) {
		u := m.users[leafIndex-1]
		return u.stateLeaf(m.config), u.Votes
	}
	return blank, zeroTally(m.config.NumVoteOptions())
}
