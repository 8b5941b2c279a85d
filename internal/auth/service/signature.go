package service

import (
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	id "tipjar/pkg/domain"
	dErrors "tipjar/pkg/domain-errors"
)

const signatureLength = crypto.SignatureLength

// RecoverSigner returns the address that produced a personal_sign
// signature over message. Wallets emit v as 27/28; both that and the raw
// 0/1 recovery id are accepted.
func RecoverSigner(message, signature string) (id.Identity, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return id.Identity{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "signature must be 0x-prefixed hex")
	}
	if len(sig) != signatureLength {
		return id.Identity{}, dErrors.New(dErrors.CodeInvalidInput, "signature must be 65 bytes")
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return id.Identity{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "signature verification failed")
	}
	return id.IdentityFromAddress(crypto.PubkeyToAddress(*pub)), nil
}
