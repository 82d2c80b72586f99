// Copyright 2026 The Latchkey Authors
// SPDX-License-Identifier: Apache-2.0

package proto

// Message numbers from draft-miller-ssh-agent §5.1. Requests are sent
// client→agent, responses agent→client.
const (
	msgNumRequestIdentities          byte = 11
	msgNumSignRequest                byte = 13
	msgNumAddIdentity                byte = 17
	msgNumRemoveIdentity             byte = 18
	msgNumRemoveAllIdentities        byte = 19
	msgNumAddSmartcardKey            byte = 20
	msgNumRemoveSmartcardKey         byte = 21
	msgNumLock                       byte = 22
	msgNumUnlock                     byte = 23
	msgNumAddIDConstrained           byte = 25
	msgNumAddSmartcardKeyConstrained byte = 26
	msgNumExtension                  byte = 27

	msgNumFailure           byte = 5
	msgNumSuccess           byte = 6
	msgNumIdentitiesAnswer  byte = 12
	msgNumSignResponse      byte = 14
	msgNumExtensionFailure  byte = 28
	msgNumExtensionResponse byte = 29
)

// Request is one protocol request message. The set of implementations
// is closed: exactly the twelve request messages the agent protocol
// defines.
type Request interface {
	isRequest()
}

// Response is one protocol response message. The set of implementations
// is closed: exactly the six response messages the agent protocol
// defines.
type Response interface {
	isResponse()
}

// --- Requests ---

// RequestIdentities asks the agent for every identity it is willing to
// sign with.
type RequestIdentities struct{}

// SignatureFlags modify how the agent computes a signature.
type SignatureFlags uint32

// Signature flag bits from draft-miller-ssh-agent §5.3. Only meaningful
// for "ssh-rsa" keys, where they select the SHA-2 signature algorithms.
const (
	SignRSASHA256 SignatureFlags = 0x02
	SignRSASHA512 SignatureFlags = 0x04
)

// SignRequest asks the agent to sign Data with the private half of the
// key identified by PublicKey (the wire-encoded public key blob as
// returned in an Identity).
type SignRequest struct {
	PublicKey []byte
	Data      []byte
	Flags     SignatureFlags
}

// AddIdentity hands a private key to the agent.
//
// KeyData is the algorithm-specific private key encoding from
// draft-miller-ssh-agent §3.2, beginning with the key type string.
// [PrivateKeyBlob] produces it from a crypto.PrivateKey.
type AddIdentity struct {
	KeyData []byte
	Comment string
}

// AddIdentityConstrained is AddIdentity with usage constraints the
// agent must enforce for this key.
type AddIdentityConstrained struct {
	Identity    AddIdentity
	Constraints Constraints
}

// RemoveIdentity asks the agent to forget the key identified by the
// wire-encoded public key blob.
type RemoveIdentity struct {
	PublicKey []byte
}

// RemoveAllIdentities asks the agent to forget every loaded key.
type RemoveAllIdentities struct{}

// SmartcardKey identifies a hardware-backed key by its reader ID and
// unlock PIN. The agent talks to the token; the private key never
// leaves the hardware.
type SmartcardKey struct {
	ID  string
	PIN string
}

// AddSmartcardKey asks the agent to make a smartcard's keys available.
type AddSmartcardKey struct {
	Key SmartcardKey
}

// AddSmartcardKeyConstrained is AddSmartcardKey with usage constraints.
type AddSmartcardKeyConstrained struct {
	Key         SmartcardKey
	Constraints Constraints
}

// RemoveSmartcardKey asks the agent to stop using a smartcard's keys.
type RemoveSmartcardKey struct {
	Key SmartcardKey
}

// Lock asks the agent to lock itself with a passphrase. A locked agent
// refuses all operations except Unlock.
type Lock struct {
	Passphrase []byte
}

// Unlock asks a locked agent to unlock itself.
type Unlock struct {
	Passphrase []byte
}

// Extension is a vendor-defined request outside the core operation set,
// identified by Name (conventionally "name@domain"). Payload is opaque
// to this package.
type Extension struct {
	Name    string
	Payload []byte
}

func (RequestIdentities) isRequest()          {}
func (SignRequest) isRequest()                {}
func (AddIdentity) isRequest()                {}
func (AddIdentityConstrained) isRequest()     {}
func (RemoveIdentity) isRequest()             {}
func (RemoveAllIdentities) isRequest()        {}
func (AddSmartcardKey) isRequest()            {}
func (AddSmartcardKeyConstrained) isRequest() {}
func (RemoveSmartcardKey) isRequest()         {}
func (Lock) isRequest()                       {}
func (Unlock) isRequest()                     {}
func (Extension) isRequest()                  {}

// --- Responses ---

// Failure is the agent's generic refusal. Locked agents and agents
// missing the requested key answer with it.
type Failure struct{}

// Success is the agent's generic acknowledgement for mutating
// operations.
type Success struct{}

// Identity is one entry in an IdentitiesAnswer: a wire-encoded public
// key blob and its human-readable comment. Parse PublicKey with
// ssh.ParsePublicKey for fingerprinting or verification.
type Identity struct {
	PublicKey []byte
	Comment   string
}

// IdentitiesAnswer lists the agent's identities in the order the agent
// supplied them.
type IdentitiesAnswer struct {
	Identities []Identity
}

// Signature is the agent's signature over a SignRequest's data. Format
// is the signature algorithm name ("ssh-ed25519", "rsa-sha2-256", ...);
// Blob is the algorithm-specific signature encoding. The shape matches
// ssh.Signature for direct verification.
type Signature struct {
	Format string
	Blob   []byte
}

// SignResponse carries the signature for a SignRequest.
type SignResponse struct {
	Signature Signature
}

// ExtensionFailure is the agent's refusal of an Extension request it
// recognizes but cannot satisfy. Agents that do not recognize the
// extension at all answer with plain Failure.
type ExtensionFailure struct{}

// ExtensionResponse carries the vendor-defined payload answering an
// Extension request. The payload encoding is defined by the extension,
// not by this package.
type ExtensionResponse struct {
	Payload []byte
}

func (Failure) isResponse()           {}
func (Success) isResponse()           {}
func (IdentitiesAnswer) isResponse()  {}
func (SignResponse) isResponse()      {}
func (ExtensionFailure) isResponse()  {}
func (ExtensionResponse) isResponse() {}

// --- Constraints ---

// Constraint type numbers from draft-miller-ssh-agent §5.2.
const (
	constrainLifetime  byte = 1
	constrainConfirm   byte = 2
	constrainExtension byte = 255
)

// ConstraintExtension is a vendor-defined key constraint. Details are
// opaque bytes trailing the name; because the wire format gives them no
// length prefix, an extension constraint must be the last constraint in
// a message and at most one can be decoded.
type ConstraintExtension struct {
	Name    string
	Details []byte
}

// Constraints restrict how the agent may use a key added with one of
// the constrained operations. The zero value means "no constraints",
// which encodes to nothing — use the unconstrained operation instead.
type Constraints struct {
	// LifetimeSecs asks the agent to forget the key after this many
	// seconds. Zero means no lifetime constraint.
	LifetimeSecs uint32

	// ConfirmBeforeUse asks the agent to require explicit user
	// confirmation for every private key operation.
	ConfirmBeforeUse bool

	// Extensions carries vendor-defined constraints.
	Extensions []ConstraintExtension
}

// empty reports whether no constraint is set.
func (c Constraints) empty() bool {
	return c.LifetimeSecs == 0 && !c.ConfirmBeforeUse && len(c.Extensions) == 0
}
