package airdrop

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	stateSeed     = "airdrop_state"
	recipientSeed = "recipient_data"

	// MaxScopeNameLen is the longest scope name usable as an address seed.
	MaxScopeNameLen = solana.MaxSeedLength
)

// Scope identifies one distribution namespace and the program that owns its
// records. It is passed explicitly to every operation.
type Scope struct {
	Name      string
	ProgramID solana.PublicKey
	Address   solana.PublicKey
}

// NewScope derives the state address for name under programID.
func NewScope(programID solana.PublicKey, name string) (Scope, error) {
	if programID.IsZero() {
		return Scope{}, errors.New("program id is required")
	}
	if name == "" {
		return Scope{}, errors.New("scope name is required")
	}
	if len(name) > MaxScopeNameLen {
		return Scope{}, fmt.Errorf("scope name too long: %d > %d", len(name), MaxScopeNameLen)
	}
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(stateSeed), []byte(name)}, programID)
	if err != nil {
		return Scope{}, fmt.Errorf("failed to derive state address: %w", err)
	}
	return Scope{Name: name, ProgramID: programID, Address: addr}, nil
}

// RecipientAddress derives the ledger record address for recipient in this
// scope. Each (scope, recipient) pair maps to exactly one address.
func (s Scope) RecipientAddress(recipient Identity) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(recipientSeed), s.Address.Bytes(), recipient.Bytes()},
		s.ProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive recipient address: %w", err)
	}
	return addr, nil
}

func (s Scope) String() string {
	return s.Name + "@" + s.Address.String()
}
