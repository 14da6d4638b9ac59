package ballot

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vocdoni/ballotbox/crypto/ballot"
	"github.com/vocdoni/ballotbox/types"
)

// CommitmentCommand computes the commitment of a commit-reveal vote.
func CommitmentCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "commitment",
		Short: "Computes the commitment of a commit-reveal vote",
		RunE:  commitmentFunc,
	}
	AddCommitmentFlags(c.Flags())
	return c
}

func commitmentFunc(c *cobra.Command, args []string) error {
	config, err := ParseCommitmentFlags(c.Flags(), args)
	if err != nil {
		return err
	}
	commitment := ballot.Commitment(config.CandidateID, config.Blinding)
	fmt.Fprintf(c.OutOrStdout(), "candidate:  %d\nblinding:   %s\ncommitment: %s\n",
		config.CandidateID, types.HexBytes(config.Blinding[:]), commitment.Hex())
	return nil
}

// NullifierCommand derives the nullifier of a voter secret for an election.
func NullifierCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "nullifier",
		Short: "Derives the nullifier of a voter secret for an anonymous election",
		RunE:  nullifierFunc,
	}
	AddNullifierFlags(c.Flags())
	return c
}

func nullifierFunc(c *cobra.Command, args []string) error {
	config, err := ParseNullifierFlags(c.Flags(), args)
	if err != nil {
		return err
	}
	var nullifier []byte
	switch config.Hash {
	case HashMiMC:
		nullifier, err = ballot.Nullifier(config.Secret, config.ElectionID)
	case HashPoseidon:
		nullifier, err = ballot.PoseidonNullifier(config.Secret, config.ElectionID)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "election:  %d\nhash:      %s\nnullifier: %s\n",
		config.ElectionID, config.Hash, types.HexBytes(nullifier))
	return nil
}
