package eqwalizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"

	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer/ast"
	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer/ipc"
	"github.com/Sumatoshi-tech/eqwald/pkg/safeconv"
)

// Typecheck runs the checker over modules and returns the aggregated
// outcome. In batch mode the child works through the given list; in shell
// mode (e.Shell) the child chooses its own visitation order and the result
// is the combination of the per-module memoized queries.
//
// A non-nil error is returned only for cancellation; every other failure is
// folded into a CheckError outcome.
func (e *Eqwalizer) Typecheck(
	ctx context.Context,
	buildInfoPath string,
	db Database,
	projectID ast.ProjectID,
	modules []string,
) (Outcome, error) {
	cmd := e.Command()
	defer cmd.Close()

	cmd.Args = append(cmd.Args, "ipc")
	cmd.Args = append(cmd.Args, modules...)
	addEnv(cmd.Cmd, buildInfoPath, "")
	cmd.Env = append(cmd.Env, envIPC+"=true", envUseConvertedAST+"=true")

	if e.Shell {
		cmd.Env = append(cmd.Env, envShell+"=true")

		out, err := shellTypecheck(ctx, cmd, db, projectID)

		return foldErr(ctx, out, err)
	}

	out, err := doTypecheck(ctx, cmd, db, projectID)

	return foldErr(ctx, out, err)
}

// foldErr converts a loop failure into a CheckError outcome, except for
// cancellation, which must propagate as an error so it is never memoized.
func foldErr(ctx context.Context, out Outcome, err error) (Outcome, error) {
	if err == nil {
		return out, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	return CheckError{Message: err.Error()}, nil
}

func doTypecheck(ctx context.Context, cmd *Command, db Database, projectID ast.ProjectID) (Outcome, error) {
	handle, err := ipc.FromCommand(cmd.Cmd)
	if err != nil {
		return nil, fmt.Errorf("starting eqwalizer process %q: %w", cmd.Path, err)
	}
	defer func() { _ = handle.Close() }()

	return protocolLoop(ctx, handle, db, projectID, false)
}

func shellTypecheck(ctx context.Context, cmd *Command, db Database, projectID ast.ProjectID) (Outcome, error) {
	// Shell runs interleave user interaction with the child; their results
	// must never be memoized.
	db.ReportUntrackedRead()

	raw, err := ipc.FromCommand(cmd.Cmd)
	if err != nil {
		return nil, fmt.Errorf("starting eqwalizer process %q: %w", cmd.Path, err)
	}

	handle := ipc.NewShared(raw)
	defer func() { _ = handle.Close() }()

	return shellLoop(ctx, handle, db, projectID)
}

// shellLoop is the child-driven visitation loop: the child announces each
// module it is about to check, the driver runs the memoized per-module query
// over the parked handle, acknowledges, and accumulates.
func shellLoop(ctx context.Context, handle *ipc.SharedHandle, db Database, projectID ast.ProjectID) (Outcome, error) {
	acc := Outcome(Diagnostics{})

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		msg, recvErr := receiveShared(handle)
		if recvErr != nil {
			return nil, recvErr
		}

		switch m := msg.(type) {
		case ipc.EnteringModule:
			db.SetModuleIPCHandle(ast.ModuleName(m.Module), handle)

			diags, _, diagErr := db.ModuleDiagnostics(ctx, projectID, m.Module)
			if diagErr != nil {
				return nil, diagErr
			}

			sendErr := sendShared(handle, ipc.ELPExitingModule{})
			if sendErr != nil {
				return nil, sendErr
			}

			acc = Combine(acc, diags)
		case ipc.Done:
			return acc, nil
		default:
			logIgnored(msg)
		}
	}
}

func receiveShared(handle *ipc.SharedHandle) (ipc.MsgFromEqwalizer, error) {
	h := handle.Acquire()
	defer handle.Release()

	return h.Receive()
}

func sendShared(handle *ipc.SharedHandle, msg ipc.MsgToEqwalizer) error {
	h := handle.Acquire()
	defer handle.Release()

	return h.Send(msg)
}

// ModuleDiagnostics computes diagnostics for one module over its parked
// shell-mode handle, pairing the outcome with a fresh timestamp. The
// timestamp's only purpose is to defeat equality-based back-dating in the
// incremental engine: equal reruns must still register as new versions.
func ModuleDiagnostics(
	ctx context.Context,
	db Database,
	projectID ast.ProjectID,
	module string,
	clock clockwork.Clock,
) (Outcome, time.Time, error) {
	timestamp := clock.Now()

	diagsOut, diagsErr := moduleDiagnostics(ctx, db, projectID, module)

	out, err := foldErr(ctx, diagsOut, diagsErr)
	if err != nil {
		return nil, time.Time{}, err
	}

	return out, timestamp, nil
}

func moduleDiagnostics(ctx context.Context, db Database, projectID ast.ProjectID, module string) (Outcome, error) {
	shared := db.ModuleIPCHandle(ast.ModuleName(module))
	if shared == nil {
		return nil, fmt.Errorf("no eqwalizer handle for module %s", module)
	}

	handle := shared.Acquire()
	defer shared.Release()

	err := handle.Send(ipc.ELPEnteringModule{})
	if err != nil {
		return nil, err
	}

	return protocolLoop(ctx, handle, db, projectID, true)
}

// protocolLoop is the request/response exchange shared by batch mode and the
// shell per-module query. The two differ only in whether Dependencies
// prefetch hints are honored.
func protocolLoop(
	ctx context.Context,
	handle *ipc.Handle,
	db Database,
	projectID ast.ProjectID,
	withDeps bool,
) (Outcome, error) {
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		msg, err := handle.Receive()
		if err != nil {
			return nil, err
		}

		switch m := msg.(type) {
		case ipc.GetAstBytes:
			outcome, reqErr := serveASTRequest(handle, db, projectID, m)
			if reqErr != nil {
				return nil, reqErr
			}

			if outcome != nil {
				return outcome, nil
			}
		case ipc.EqwalizingStart:
			db.EqwalizingStart(m.Module)
		case ipc.EqwalizingDone:
			db.EqwalizingDone(m.Module)
		case ipc.Dependencies:
			if !withDeps {
				logIgnored(msg)

				continue
			}

			// Prefetch hint: warm the stub cache, discard the results.
			for _, dep := range m.Modules {
				_, _ = db.TransitiveStubBytes(projectID, ast.ModuleName(dep))
			}
		case ipc.Done:
			slog.Debug("received from eqwalizer: Done", "modules", len(m.Diagnostics))

			return Diagnostics{ByModule: m.Diagnostics}, nil
		default:
			logIgnored(msg)
		}
	}
}

// serveASTRequest answers one GetAstBytes. A nil, nil return means the
// exchange continues; a non-nil Outcome terminates the loop; an error is a
// transport-fatal condition.
func serveASTRequest(handle *ipc.Handle, db Database, projectID ast.ProjectID, req ipc.GetAstBytes) (Outcome, error) {
	slog.Debug("received from eqwalizer: GetAstBytes",
		"module", req.Module, "format", string(req.Format))

	payload, err := astBytes(db, projectID, req)

	switch {
	case err == nil:
		length, convErr := safeconv.IntToUint32(len(payload))
		if convErr != nil {
			return nil, convErr
		}

		slog.Debug("sending to eqwalizer: GetAstBytesReply",
			"module", req.Module, "size", humanize.IBytes(uint64(length)))

		sendErr := handle.Send(ipc.GetAstBytesReply{AstBytesLen: length})
		if sendErr != nil {
			return nil, sendErr
		}

		ackErr := handle.ReceiveNewline()
		if ackErr != nil {
			return nil, ackErr
		}

		if length > 0 {
			writeErr := handle.SendBytes(payload)
			if writeErr != nil {
				return nil, writeErr
			}
		}

		return nil, nil
	case errors.Is(err, ast.ErrModuleNotFound):
		slog.Debug("module not found, sending to eqwalizer: empty GetAstBytesReply",
			"module", req.Module)

		sendErr := handle.Send(ipc.GetAstBytesReply{AstBytesLen: 0})
		if sendErr != nil {
			return nil, sendErr
		}

		ackErr := handle.ReceiveNewline()
		if ackErr != nil {
			return nil, ackErr
		}

		return nil, nil
	case errors.Is(err, ast.ErrParseError):
		slog.Debug("parse error, sending to eqwalizer: CannotCompleteRequest",
			"module", req.Module)

		// The classification stands even if the error reply cannot be
		// delivered; the broken pipe resurfaces on the next receive.
		_ = handle.Send(ipc.CannotCompleteRequest{})

		return NoAst{Module: req.Module}, nil
	default:
		slog.Debug("AST error, sending to eqwalizer: CannotCompleteRequest",
			"module", req.Module, "error", err)

		_ = handle.Send(ipc.CannotCompleteRequest{})

		return CheckError{Message: err.Error()}, nil
	}
}

func astBytes(db Database, projectID ast.ProjectID, req ipc.GetAstBytes) ([]byte, error) {
	module := ast.ModuleName(req.Module)

	switch req.Format {
	case ipc.RawForms:
		return db.ErlASTBytes(projectID, module)
	case ipc.ConvertedForms:
		return db.ConvertedASTBytes(projectID, module)
	case ipc.RawStub:
		return db.ErlStubBytes(projectID, module)
	case ipc.ConvertedStub:
		return db.ConvertedStubBytes(projectID, module)
	case ipc.ExpandedStub:
		return db.ExpandedStubBytes(projectID, module)
	case ipc.ContractiveStub:
		return db.ContractiveStubBytes(projectID, module)
	case ipc.CovariantStub:
		return db.CovariantStubBytes(projectID, module)
	case ipc.TransitiveStub:
		return db.TransitiveStubBytes(projectID, module)
	default:
		return nil, fmt.Errorf("%w: %q", ipc.ErrUnknownFormat, req.Format)
	}
}

func logIgnored(msg ipc.MsgFromEqwalizer) {
	if unknown, ok := msg.(ipc.Unknown); ok {
		slog.Warn("ignoring unexpected message from eqwalizer", "tag", unknown.Tag)

		return
	}

	slog.Warn("ignoring unexpected message from eqwalizer", "type", fmt.Sprintf("%T", msg))
}
