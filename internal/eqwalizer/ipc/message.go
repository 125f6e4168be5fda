package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ASTFormat names the transformation stage of the module representation the
// child wants served.
type ASTFormat string

// The eight stages the child can request, in pipeline order.
const (
	RawForms        ASTFormat = "RawForms"
	ConvertedForms  ASTFormat = "ConvertedForms"
	RawStub         ASTFormat = "RawStub"
	ConvertedStub   ASTFormat = "ConvertedStub"
	ExpandedStub    ASTFormat = "ExpandedStub"
	ContractiveStub ASTFormat = "ContractiveStub"
	CovariantStub   ASTFormat = "CovariantStub"
	TransitiveStub  ASTFormat = "TransitiveStub"
)

// ErrUnknownFormat indicates an AST format tag this driver does not serve.
var ErrUnknownFormat = errors.New("unknown AST format")

func (f ASTFormat) valid() bool {
	switch f {
	case RawForms, ConvertedForms, RawStub, ConvertedStub,
		ExpandedStub, ContractiveStub, CovariantStub, TransitiveStub:
		return true
	default:
		return false
	}
}

// MsgFromEqwalizer is a message received from the child. The concrete types
// are GetAstBytes, EqwalizingStart, EqwalizingDone, EnteringModule,
// Dependencies, Done, and Unknown.
type MsgFromEqwalizer interface {
	isMsgFromEqwalizer()
}

// GetAstBytes asks the driver to serve one module representation.
type GetAstBytes struct {
	Module string
	Format ASTFormat
}

// EqwalizingStart notifies the driver that checking of a module began.
type EqwalizingStart struct {
	Module string
}

// EqwalizingDone notifies the driver that checking of a module finished.
type EqwalizingDone struct {
	Module string
}

// EnteringModule is the shell-mode announcement that the child is about to
// check a module and waits for the driver to catch up.
type EnteringModule struct {
	Module string
}

// Dependencies is a shell-mode prefetch hint listing modules whose transitive
// stubs the child will need soon. No reply is expected.
type Dependencies struct {
	Modules []string
}

// Done terminates a protocol exchange and carries the accumulated
// diagnostics, keyed by module name.
type Done struct {
	Diagnostics map[string][]Diagnostic
}

// Unknown is any message whose tag this driver does not recognize. The
// protocol loops log and ignore it.
type Unknown struct {
	Tag string
}

func (GetAstBytes) isMsgFromEqwalizer()     {}
func (EqwalizingStart) isMsgFromEqwalizer() {}
func (EqwalizingDone) isMsgFromEqwalizer()  {}
func (EnteringModule) isMsgFromEqwalizer()  {}
func (Dependencies) isMsgFromEqwalizer()    {}
func (Done) isMsgFromEqwalizer()            {}
func (Unknown) isMsgFromEqwalizer()         {}

// MsgToEqwalizer is a message sent to the child. The concrete types are
// GetAstBytesReply, CannotCompleteRequest, ELPEnteringModule, and
// ELPExitingModule.
type MsgToEqwalizer interface {
	isMsgToEqwalizer()
}

// GetAstBytesReply announces how many raw payload bytes follow the child's
// newline acknowledgement. Zero means the module is absent and no payload
// follows.
type GetAstBytesReply struct {
	AstBytesLen uint32
}

// CannotCompleteRequest tells the child the driver cannot serve the current
// request and is abandoning the exchange.
type CannotCompleteRequest struct{}

// ELPEnteringModule acknowledges a shell-mode EnteringModule and starts the
// per-module exchange.
type ELPEnteringModule struct{}

// ELPExitingModule closes a shell-mode per-module exchange.
type ELPExitingModule struct{}

func (GetAstBytesReply) isMsgToEqwalizer()      {}
func (CannotCompleteRequest) isMsgToEqwalizer() {}
func (ELPEnteringModule) isMsgToEqwalizer()     {}
func (ELPExitingModule) isMsgToEqwalizer()      {}

// Wire tags. Messages are flat JSON objects discriminated by a "tag" field,
// with the variant fields inlined alongside it.
const (
	tagGetAstBytes           = "GetAstBytes"
	tagEqwalizingStart       = "EqwalizingStart"
	tagEqwalizingDone        = "EqwalizingDone"
	tagEnteringModule        = "EnteringModule"
	tagDependencies          = "Dependencies"
	tagDone                  = "Done"
	tagGetAstBytesReply      = "GetAstBytesReply"
	tagCannotCompleteRequest = "CannotCompleteRequest"
	tagELPEnteringModule     = "ELPEnteringModule"
	tagELPExitingModule      = "ELPExitingModule"
)

type envelope struct {
	Tag         string                  `json:"tag"`
	Module      string                  `json:"module,omitempty"`
	Format      ASTFormat               `json:"format,omitempty"`
	Modules     []string                `json:"modules,omitempty"`
	Diagnostics map[string][]Diagnostic `json:"diagnostics,omitempty"`
	AstBytesLen uint32                  `json:"ast_bytes_len,omitempty"`
}

func decodeMsg(line []byte) (MsgFromEqwalizer, error) {
	var env envelope

	err := json.Unmarshal(line, &env)
	if err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	switch env.Tag {
	case tagGetAstBytes:
		if !env.Format.valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, env.Format)
		}

		return GetAstBytes{Module: env.Module, Format: env.Format}, nil
	case tagEqwalizingStart:
		return EqwalizingStart{Module: env.Module}, nil
	case tagEqwalizingDone:
		return EqwalizingDone{Module: env.Module}, nil
	case tagEnteringModule:
		return EnteringModule{Module: env.Module}, nil
	case tagDependencies:
		return Dependencies{Modules: env.Modules}, nil
	case tagDone:
		diags := env.Diagnostics
		if diags == nil {
			diags = map[string][]Diagnostic{}
		}

		return Done{Diagnostics: diags}, nil
	default:
		return Unknown{Tag: env.Tag}, nil
	}
}

func encodeMsg(msg MsgToEqwalizer) ([]byte, error) {
	var env envelope

	switch m := msg.(type) {
	case GetAstBytesReply:
		// ast_bytes_len must survive a zero value: the empty reply is the
		// module-absent signal.
		payload := struct {
			Tag         string `json:"tag"`
			AstBytesLen uint32 `json:"ast_bytes_len"`
		}{Tag: tagGetAstBytesReply, AstBytesLen: m.AstBytesLen}

		return json.Marshal(payload)
	case CannotCompleteRequest:
		env.Tag = tagCannotCompleteRequest
	case ELPEnteringModule:
		env.Tag = tagELPEnteringModule
	case ELPExitingModule:
		env.Tag = tagELPExitingModule
	default:
		return nil, fmt.Errorf("encode message: unsupported type %T", msg)
	}

	return json.Marshal(env)
}
