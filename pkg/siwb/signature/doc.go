// Package signature verifies Sign-In-With-Bitcoin signatures over secp256k1.
//
// A client proves it controls a key by signing the SHA-256 digest of the
// message that embeds a server challenge. The verifier checks that proof and
// answers with a single boolean; why a proof was rejected is written to the
// diagnostic log and never returned, so a caller cannot use the verifier as an
// oracle for crafting inputs.
//
// # Strategies
//
// A Verifier runs exactly one strategy, chosen when it is built. Clients must
// produce the encoding that matches it.
//
// StrategyRecover (default) expects 65 bytes, hex encoded:
//
//	r (32 bytes, big endian) || s (32 bytes, big endian) || recovery id (0 or 1)
//
// The public key is recovered from the signature and compared with the claimed
// key in compressed SEC1 form.
//
// StrategyDirect expects a strict DER signature or a 64 byte r || s pair and
// runs standard ECDSA verification against the claimed key. A signature that
// begins with 0x30 is parsed as DER first; only when that fails and it is 64
// bytes long is it read as r || s.
//
// In both strategies the public key is SEC1 encoded, compressed (33 bytes,
// prefix 02 or 03) or uncompressed (65 bytes, prefix 04). The hybrid 06/07
// form is rejected.
//
// # Usage
//
//	verifier, err := signature.NewVerifier(signature.StrategyRecover, logger)
//	if err != nil {
//	    return err
//	}
//	ok := verifier.Verify(message, signatureHex, publicKeyHex)
package signature
