package ballot

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/vocdoni/ballotbox/crypto/ballot"
	"github.com/vocdoni/ballotbox/types"
)

const (
	CandidateKey = "candidate"
	BlindingKey  = "blinding"
	SecretKey    = "secret"
	ElectionKey  = "election"
	HashKey      = "hash"

	HashMiMC     = "mimc"
	HashPoseidon = "poseidon"
)

func AddCommitmentFlags(flags *pflag.FlagSet) {
	flags.Uint64(CandidateKey, 0, "candidate id, starting at 1 (required)")
	flags.String(BlindingKey, "", "32 byte hex blinding factor, random if empty")
}

type CommitmentConfig struct {
	CandidateID uint64
	Blinding    [ballot.BlindingSize]byte
}

func ParseCommitmentFlags(flags *pflag.FlagSet, args []string) (*CommitmentConfig, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	candidateID, err := flags.GetUint64(CandidateKey)
	if err != nil {
		return nil, err
	}
	if candidateID == 0 {
		return nil, fmt.Errorf("--%s is required", CandidateKey)
	}

	blindingStr, err := flags.GetString(BlindingKey)
	if err != nil {
		return nil, err
	}
	blinding := ballot.NewBlinding()
	if blindingStr != "" {
		hb, err := types.HexStringToHexBytes(blindingStr)
		if err != nil {
			return nil, fmt.Errorf("invalid blinding: %w", err)
		}
		if blinding, err = hb.Bytes32(); err != nil {
			return nil, fmt.Errorf("invalid blinding: %w", err)
		}
	}

	return &CommitmentConfig{
		CandidateID: candidateID,
		Blinding:    blinding,
	}, nil
}

func AddNullifierFlags(flags *pflag.FlagSet) {
	flags.String(SecretKey, "", "hex voter secret (required)")
	flags.Uint64(ElectionKey, 0, "anonymous election id (required)")
	flags.String(HashKey, HashMiMC, "nullifier hash (mimc, poseidon)")
}

type NullifierConfig struct {
	Secret     []byte
	ElectionID uint64
	Hash       string
}

func ParseNullifierFlags(flags *pflag.FlagSet, args []string) (*NullifierConfig, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	secretStr, err := flags.GetString(SecretKey)
	if err != nil {
		return nil, err
	}
	if secretStr == "" {
		return nil, fmt.Errorf("--%s is required", SecretKey)
	}
	secret, err := types.HexStringToHexBytes(secretStr)
	if err != nil {
		return nil, fmt.Errorf("invalid secret: %w", err)
	}

	electionID, err := flags.GetUint64(ElectionKey)
	if err != nil {
		return nil, err
	}
	if electionID == 0 {
		return nil, fmt.Errorf("--%s is required", ElectionKey)
	}

	hash, err := flags.GetString(HashKey)
	if err != nil {
		return nil, err
	}
	if hash != HashMiMC && hash != HashPoseidon {
		return nil, fmt.Errorf("unknown hash %q", hash)
	}

	return &NullifierConfig{
		Secret:     secret,
		ElectionID: electionID,
		Hash:       hash,
	}, nil
}
