package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	dErrors "tipjar/pkg/domain-errors"
)

// Identity is an opaque caller reference: a 20-byte account address.
// Identities are compared for equality only.
//
// Invariant: an Identity obtained from ParseIdentity is never the zero address.
type Identity common.Address

// ParseIdentity validates a hex address at a trust boundary.
//
// Errors: CodeInvalidInput when the value is empty, not a 20-byte hex address,
// or the zero address.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "identity cannot be empty")
	}
	if !common.IsHexAddress(s) {
		return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "identity must be a 20-byte hex address")
	}
	id := Identity(common.HexToAddress(s))
	if id.IsNil() {
		return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "identity cannot be the zero address")
	}
	return id, nil
}

// IdentityFromAddress converts a recovered signer address.
func IdentityFromAddress(addr common.Address) Identity {
	return Identity(addr)
}

// Address returns the underlying account address.
func (i Identity) Address() common.Address {
	return common.Address(i)
}

// String returns the EIP-55 checksummed form.
func (i Identity) String() string {
	return common.Address(i).Hex()
}

// IsNil reports whether the identity is the zero address.
func (i Identity) IsNil() bool {
	return i == Identity{}
}

func (i Identity) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
