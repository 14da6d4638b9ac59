package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// EventType names an observable state change of the ledger.
type EventType string

const (
	EventElectionCreated EventType = "ElectionCreated"
	EventElectionEnded   EventType = "ElectionEnded"
	EventVoteCommitted   EventType = "VoteCommitted"
	EventVoteRevealed    EventType = "VoteRevealed"
	EventVoteCast        EventType = "VoteCast"
)

// Event is emitted after a state change has been committed. Only the fields
// relevant to the event type are set.
type Event struct {
	Seq        uint64          `json:"seq"                  cbor:"0,keyasint,omitempty"`
	Type       EventType       `json:"type"                 cbor:"1,keyasint,omitempty"`
	Kind       Kind            `json:"kind"                 cbor:"2,keyasint,omitempty"`
	ElectionID uint64          `json:"electionId"           cbor:"3,keyasint,omitempty"`
	Name       string          `json:"name,omitempty"       cbor:"4,keyasint,omitempty"`
	Nullifier  HexBytes        `json:"nullifier,omitempty"  cbor:"5,keyasint,omitempty"`
	Voter      *common.Address `json:"voter,omitempty"      cbor:"6,keyasint,omitempty"`
	Timestamp  int64           `json:"timestamp"            cbor:"7,keyasint,omitempty"`
}
