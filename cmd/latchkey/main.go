// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

// latchkey is a command-line client for SSH authentication agents.
//
// It talks the agent protocol over a Unix socket, a TCP socket, or a
// Windows named pipe and exposes one subcommand per agent operation.
//
// Usage:
//
//	latchkey list
//	latchkey sign --key id_ed25519.pub --data message.txt
//	latchkey add id_ed25519 --lifetime 3600
//	latchkey lock
package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"github.com/latchkey-foundation/latchkey/client"
	"github.com/latchkey-foundation/latchkey/proto"
	"github.com/latchkey-foundation/latchkey/transport"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	subcommand := os.Args[1]
	args := os.Args[2:]
	switch subcommand {
	case "list":
		return runList(args)
	case "sign":
		return runSign(args)
	case "add":
		return runAdd(args)
	case "remove":
		return runRemove(args)
	case "remove-all":
		return runRemoveAll(args)
	case "lock":
		return runLock(args)
	case "unlock":
		return runUnlock(args)
	case "extension":
		return runExtension(args)
	case "version":
		fmt.Printf("latchkey %s\n", version)
		return nil
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: latchkey <subcommand> [flags]

Subcommands:
  list         List the agent's identities
  sign         Sign data with an agent-held key
  add          Add a private key to the agent
  remove       Remove one key from the agent
  remove-all   Remove every key from the agent
  lock         Lock the agent with a passphrase
  unlock       Unlock the agent
  extension    Send a vendor extension request
  version      Print version information

The agent address comes from --agent or SSH_AUTH_SOCK. Accepted forms:
a socket path, unix://..., tcp://host:port, npipe://\\.\pipe\name.

Run 'latchkey <subcommand> --help' for subcommand flags.
`)
}

// agentFlags holds the connection flags shared by every subcommand.
type agentFlags struct {
	agent   string
	timeout time.Duration
	verbose bool
}

// register adds the shared connection flags to a subcommand flag set.
func (f *agentFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.agent, "agent", "", "agent address (default: SSH_AUTH_SOCK)")
	flags.DurationVar(&f.timeout, "timeout", 10*time.Second, "per-operation deadline")
	flags.BoolVar(&f.verbose, "verbose", false, "enable debug logging")
}

// connect resolves the agent descriptor and opens a session.
func (f *agentFlags) connect(ctx context.Context) (*client.Client, error) {
	if f.verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	var descriptor transport.Descriptor
	var err error
	if f.agent != "" {
		descriptor, err = transport.Parse(f.agent)
	} else {
		descriptor, err = transport.FromEnvironment()
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("connecting to agent", "descriptor", descriptor.String())
	agent, err := client.Dial(ctx, descriptor)
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// operationContext builds the context bounding one agent operation.
func (f *agentFlags) operationContext() (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), f.timeout)
}

func runList(args []string) error {
	flags := pflag.NewFlagSet("list", pflag.ContinueOnError)
	var connection agentFlags
	connection.register(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx, cancel := connection.operationContext()
	defer cancel()

	agent, err := connection.connect(ctx)
	if err != nil {
		return err
	}
	defer agent.Close()

	identities, err := agent.RequestIdentities(ctx)
	if err != nil {
		return err
	}
	if len(identities) == 0 {
		fmt.Println("The agent has no identities.")
		return nil
	}
	for _, identity := range identities {
		publicKey, err := ssh.ParsePublicKey(identity.PublicKey)
		if err != nil {
			fmt.Printf("(unparseable key) %s\n", identity.Comment)
			continue
		}
		fmt.Printf("%s %s (%s)\n", ssh.FingerprintSHA256(publicKey), identity.Comment, publicKey.Type())
	}
	return nil
}

func runSign(args []string) error {
	flags := pflag.NewFlagSet("sign", pflag.ContinueOnError)
	var connection agentFlags
	connection.register(flags)
	keyPath := flags.String("key", "", "public key file identifying the signing key")
	dataPath := flags.String("data", "-", "file to sign ('-' for stdin)")
	useSHA256 := flags.Bool("rsa-sha2-256", false, "request an rsa-sha2-256 signature")
	useSHA512 := flags.Bool("rsa-sha2-512", false, "request an rsa-sha2-512 signature")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *keyPath == "" {
		return fmt.Errorf("--key is required")
	}

	publicKey, err := readPublicKeyFile(*keyPath)
	if err != nil {
		return err
	}
	data, err := readFileOrStdin(*dataPath)
	if err != nil {
		return err
	}

	var signatureFlags proto.SignatureFlags
	if *useSHA256 {
		signatureFlags |= proto.SignRSASHA256
	}
	if *useSHA512 {
		signatureFlags |= proto.SignRSASHA512
	}

	ctx, cancel := connection.operationContext()
	defer cancel()

	agent, err := connection.connect(ctx)
	if err != nil {
		return err
	}
	defer agent.Close()

	signature, err := agent.Sign(ctx, proto.SignRequest{
		PublicKey: publicKey.Marshal(),
		Data:      data,
		Flags:     signatureFlags,
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", signature.Format, base64.StdEncoding.EncodeToString(signature.Blob))
	return nil
}

func runAdd(args []string) error {
	flags := pflag.NewFlagSet("add", pflag.ContinueOnError)
	var connection agentFlags
	connection.register(flags)
	comment := flags.String("comment", "", "comment stored with the key")
	lifetime := flags.Uint32("lifetime", 0, "forget the key after this many seconds")
	confirm := flags.Bool("confirm", false, "require confirmation for every use")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: latchkey add [flags] <private-key-file>")
	}
	keyPath := flags.Arg(0)

	pemBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("reading private key: %w", err)
	}
	privateKey, err := ssh.ParseRawPrivateKey(pemBytes)
	if err != nil {
		return fmt.Errorf("parsing private key %s: %w", keyPath, err)
	}
	keyData, err := proto.PrivateKeyBlob(privateKey)
	if err != nil {
		return err
	}

	identity := proto.AddIdentity{
		KeyData: keyData,
		Comment: *comment,
	}
	if identity.Comment == "" {
		identity.Comment = keyPath
	}
	constraints := proto.Constraints{
		LifetimeSecs:     *lifetime,
		ConfirmBeforeUse: *confirm,
	}

	ctx, cancel := connection.operationContext()
	defer cancel()

	agent, err := connection.connect(ctx)
	if err != nil {
		return err
	}
	defer agent.Close()

	if constraints.LifetimeSecs != 0 || constraints.ConfirmBeforeUse {
		err = agent.AddIdentityConstrained(ctx, identity, constraints)
	} else {
		err = agent.AddIdentity(ctx, identity)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Identity added: %s\n", identity.Comment)
	return nil
}

func runRemove(args []string) error {
	flags := pflag.NewFlagSet("remove", pflag.ContinueOnError)
	var connection agentFlags
	connection.register(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: latchkey remove [flags] <public-key-file>")
	}

	publicKey, err := readPublicKeyFile(flags.Arg(0))
	if err != nil {
		return err
	}

	ctx, cancel := connection.operationContext()
	defer cancel()

	agent, err := connection.connect(ctx)
	if err != nil {
		return err
	}
	defer agent.Close()

	if err := agent.RemoveIdentity(ctx, publicKey.Marshal()); err != nil {
		return err
	}
	fmt.Printf("Identity removed: %s\n", ssh.FingerprintSHA256(publicKey))
	return nil
}

func runRemoveAll(args []string) error {
	flags := pflag.NewFlagSet("remove-all", pflag.ContinueOnError)
	var connection agentFlags
	connection.register(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx, cancel := connection.operationContext()
	defer cancel()

	agent, err := connection.connect(ctx)
	if err != nil {
		return err
	}
	defer agent.Close()

	if err := agent.RemoveAllIdentities(ctx); err != nil {
		return err
	}
	fmt.Println("All identities removed.")
	return nil
}

func runLock(args []string) error {
	return lockOrUnlock(args, "lock")
}

func runUnlock(args []string) error {
	return lockOrUnlock(args, "unlock")
}

func lockOrUnlock(args []string, operation string) error {
	flags := pflag.NewFlagSet(operation, pflag.ContinueOnError)
	var connection agentFlags
	connection.register(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}

	passphrase, err := promptPassphrase(fmt.Sprintf("Passphrase to %s agent: ", operation))
	if err != nil {
		return err
	}

	ctx, cancel := connection.operationContext()
	defer cancel()

	agent, err := connection.connect(ctx)
	if err != nil {
		return err
	}
	defer agent.Close()

	if operation == "lock" {
		err = agent.Lock(ctx, passphrase)
	} else {
		err = agent.Unlock(ctx, passphrase)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Agent %sed.\n", operation)
	return nil
}

func runExtension(args []string) error {
	flags := pflag.NewFlagSet("extension", pflag.ContinueOnError)
	var connection agentFlags
	connection.register(flags)
	payloadPath := flags.String("payload", "", "payload file ('-' for stdin, empty for none)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: latchkey extension [flags] <extension-name>")
	}

	var payload []byte
	if *payloadPath != "" {
		var err error
		payload, err = readFileOrStdin(*payloadPath)
		if err != nil {
			return err
		}
	}

	ctx, cancel := connection.operationContext()
	defer cancel()

	agent, err := connection.connect(ctx)
	if err != nil {
		return err
	}
	defer agent.Close()

	response, err := agent.Extension(ctx, proto.Extension{
		Name:    flags.Arg(0),
		Payload: payload,
	})
	if err != nil {
		return err
	}
	if response == nil {
		fmt.Println("Extension acknowledged (no payload).")
		return nil
	}
	if _, err := os.Stdout.Write(response.Payload); err != nil {
		return err
	}
	return nil
}

// promptPassphrase reads a passphrase from the terminal without echo.
func promptPassphrase(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	return passphrase, nil
}

// readPublicKeyFile parses an authorized_keys-format public key file.
func readPublicKeyFile(path string) (ssh.PublicKey, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	publicKey, _, _, _, err := ssh.ParseAuthorizedKey(contents)
	if err != nil {
		return nil, fmt.Errorf("parsing public key %s: %w", path, err)
	}
	return publicKey, nil
}

func readFileOrStdin(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
