package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"siwb/internal/usecases"
	"siwb/pkg/siwb/challenge"
	"siwb/pkg/siwb/signature"
)

const privateKeyEnv = "WALLET_PRIVATE_KEY"

var errSignatureInvalid = errors.New("signature invalid")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "siwbctl",
		Short:         "Sign-In-With-Bitcoin toolkit",
		Long:          "Offline access to SIWB challenges, wallet signing and signature verification.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newKeygenCmd(), newChallengeCmd(), newSignCmd(), newVerifyCmd())
	return root
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a secp256k1 wallet key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := signature.GeneratePrivateKey()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "private_key: %s\n", signature.PrivateKeyHex(key))
			fmt.Fprintf(out, "public_key:  %s\n", signature.PublicKeyHex(key))
			return nil
		},
	}
}

func newChallengeCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "challenge",
		Short: "Print fresh sign-in challenges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := challenge.NewSystemEntropy(challenge.DefaultEntropySize)
			if err != nil {
				return err
			}
			gen, err := challenge.NewGenerator(source)
			if err != nil {
				return err
			}
			for i := 0; i < count; i++ {
				value, err := gen.Generate(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of challenges")
	return cmd
}

func newSignCmd() *cobra.Command {
	var (
		keyHex   string
		strategy string
		message  string
		name     string
		nonce    string
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a message or a login challenge",
		Long: "Sign --message as is, or build the login message from --name and --challenge.\n" +
			"The key is read from --key or " + privateKeyEnv + ".",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyHex == "" {
				keyHex = os.Getenv(privateKeyEnv)
			}
			key, err := signature.ParsePrivateKey(keyHex)
			if err != nil {
				return err
			}
			s, err := signature.ParseStrategy(strategy)
			if err != nil {
				return err
			}

			switch {
			case message != "" && nonce != "":
				return errors.New("use either --message or --challenge")
			case nonce != "":
				message = usecases.LoginMessage(name, nonce)
			case message == "":
				return errors.New("nothing to sign: set --message or --challenge")
			}

			sigHex, err := signature.Sign(s, key, message)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "message:    %s\n", message)
			fmt.Fprintf(out, "signature:  %s\n", sigHex)
			fmt.Fprintf(out, "public_key: %s\n", signature.PublicKeyHex(key))
			return nil
		},
	}
	cmd.Flags().StringVar(&keyHex, "key", "", "private key hex")
	cmd.Flags().StringVar(&strategy, "strategy", "recover", "signature encoding: recover or direct")
	cmd.Flags().StringVar(&message, "message", "", "message to sign")
	cmd.Flags().StringVar(&name, "name", "siwbctl", "client name for the login message")
	cmd.Flags().StringVar(&nonce, "challenge", "", "challenge to embed in the login message")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var (
		strategy string
		message  string
		sigHex   string
		pubHex   string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a signature against a public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := signature.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			verifier, err := signature.NewVerifier(s, nil)
			if err != nil {
				return err
			}
			if !verifier.Verify(message, sigHex, pubHex) {
				fmt.Fprintln(cmd.OutOrStdout(), "invalid")
				return errSignatureInvalid
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "recover", "signature encoding: recover or direct")
	cmd.Flags().StringVar(&message, "message", "", "signed message")
	cmd.Flags().StringVar(&sigHex, "signature", "", "signature hex")
	cmd.Flags().StringVar(&pubHex, "pubkey", "", "compressed or uncompressed public key hex")
	_ = cmd.MarkFlagRequired("message")
	_ = cmd.MarkFlagRequired("signature")
	_ = cmd.MarkFlagRequired("pubkey")
	return cmd
}
