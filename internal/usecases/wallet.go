package usecases

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"siwb/internal/domain"
	"siwb/pkg/siwb/signature"
)

// WalletUsecase signs challenges on behalf of the client.
type WalletUsecase interface {
	PublicKeyHex() string
	SignChallenge(challenge string) (*domain.Credentials, error)
}

type walletUsecaseImpl struct {
	name     string
	key      *btcec.PrivateKey
	strategy signature.Strategy
}

// NewWalletUsecase loads the signing key and the signature encoding the
// server expects.
func NewWalletUsecase(name, privateKeyHex, strategy string) (WalletUsecase, error) {
	key, err := signature.ParsePrivateKey(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet key: %w", err)
	}
	s, err := signature.ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}
	return &walletUsecaseImpl{
		name:     name,
		key:      key,
		strategy: s,
	}, nil
}

// LoginMessage is the text a wallet signs to redeem challenge.
func LoginMessage(name, challenge string) string {
	return fmt.Sprintf("login:%s:%s", name, challenge)
}

func (w *walletUsecaseImpl) PublicKeyHex() string {
	return signature.PublicKeyHex(w.key)
}

func (w *walletUsecaseImpl) SignChallenge(challenge string) (*domain.Credentials, error) {
	if challenge == "" {
		return nil, fmt.Errorf("empty challenge")
	}
	message := LoginMessage(w.name, challenge)
	sigHex, err := signature.Sign(w.strategy, w.key, message)
	if err != nil {
		return nil, fmt.Errorf("failed to sign challenge: %w", err)
	}
	return &domain.Credentials{
		Message:      message,
		SignatureHex: sigHex,
		PublicKeyHex: w.PublicKeyHex(),
	}, nil
}
