package airdrop

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

const (
	discriminatorLen = 8

	// DistributionStateSize is the encoded account size: discriminator, owner
	// and two u64 counters.
	DistributionStateSize = discriminatorLen + 32 + 8 + 8
	// RecipientLedgerSize is the encoded account size: discriminator,
	// recipient and one u64 counter.
	RecipientLedgerSize = discriminatorLen + 32 + 8
)

var (
	distributionStateDiscriminator = accountDiscriminator("AirdropState")
	recipientLedgerDiscriminator   = accountDiscriminator("RecipientData")
)

func accountDiscriminator(name string) [discriminatorLen]byte {
	var d [discriminatorLen]byte
	sum := sha256.Sum256([]byte("account:" + name))
	copy(d[:], sum[:discriminatorLen])
	return d
}

// MarshalBinary encodes the state in its persisted account layout.
func (s DistributionState) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(distributionStateDiscriminator[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(s.Owner[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(s.TotalDistributed, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(s.TotalBatches, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a persisted state account.
func (s *DistributionState) UnmarshalBinary(data []byte) error {
	if len(data) != DistributionStateSize {
		return fmt.Errorf("invalid state account size: %d", len(data))
	}
	dec := bin.NewBorshDecoder(data)
	if err := readDiscriminator(dec, distributionStateDiscriminator); err != nil {
		return err
	}
	owner, err := dec.ReadNBytes(32)
	if err != nil {
		return fmt.Errorf("failed to read owner: %w", err)
	}
	copy(s.Owner[:], owner)
	if s.TotalDistributed, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return fmt.Errorf("failed to read total distributed: %w", err)
	}
	if s.TotalBatches, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return fmt.Errorf("failed to read total batches: %w", err)
	}
	return nil
}

// MarshalBinary encodes the record in its persisted account layout.
func (r RecipientLedger) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(recipientLedgerDiscriminator[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(r.Recipient[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(r.AmountReceived, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a persisted recipient account.
func (r *RecipientLedger) UnmarshalBinary(data []byte) error {
	if len(data) != RecipientLedgerSize {
		return fmt.Errorf("invalid recipient account size: %d", len(data))
	}
	dec := bin.NewBorshDecoder(data)
	if err := readDiscriminator(dec, recipientLedgerDiscriminator); err != nil {
		return err
	}
	recipient, err := dec.ReadNBytes(32)
	if err != nil {
		return fmt.Errorf("failed to read recipient: %w", err)
	}
	copy(r.Recipient[:], recipient)
	if r.AmountReceived, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return fmt.Errorf("failed to read amount received: %w", err)
	}
	return nil
}

func readDiscriminator(dec *bin.Decoder, want [discriminatorLen]byte) error {
	got, err := dec.ReadNBytes(discriminatorLen)
	if err != nil {
		return fmt.Errorf("failed to read discriminator: %w", err)
	}
	if !bytes.Equal(got, want[:]) {
		return fmt.Errorf("unexpected account discriminator %x", got)
	}
	return nil
}
