package domain

import "time"

// Challenge is a one-time token handed to a wallet for signing.
type Challenge struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Credentials is what a wallet submits to prove key ownership: the signed
// message (which embeds the challenge), the signature and the claimed public
// key, both hex encoded.
type Credentials struct {
	Message      string
	SignatureHex string
	PublicKeyHex string
}
