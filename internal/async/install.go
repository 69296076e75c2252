package async

import (
	"context"

	"github.com/thoukydides/riscos-psifs-sub001/internal/perr"
)

type installStep int

const (
	installStepFinding installStep = iota
	installStepWritingInstaller
	installStepWritingSIS
)

// installStage finds InstallerName across the remote filesystem,
// writing-and-starting it first if it is not already present, then
// writes-and-starts SISPath through it (spec.md §4.1 "install").
type installStage struct {
	params InstallParams

	step          installStep
	installerPath string
}

func (s *installStage) Initialise(ctx context.Context, op *Op) error {
	op.SetStatus(StatusBusy)
	op.SetDetail("locating " + s.params.InstallerName)
	s.step = installStepFinding
	return op.Delegate(KindFind, FindParams{Root: `\`, Pattern: s.params.InstallerName})
}

func (s *installStage) Process(ctx context.Context, op *Op, msg Message) error {
	if !msg.ChildDone {
		return perr.New(perr.KindBadState, "install: unexpected message outside child completion")
	}

	switch s.step {
	case installStepFinding:
		var found string
		if op.Child() != nil {
			if p, ok := op.Child().Result().(string); ok {
				found = p
			}
		}
		status, _ := op.ConsumeChild()
		if status == StatusSuccess && found != "" {
			s.installerPath = found
			return s.startSIS(ctx, op)
		}
		// Not found locally: write-and-start the installer executable
		// itself from its local staging copy before the SIS package.
		s.step = installStepWritingInstaller
		return op.Delegate(KindWriteAndStart, WriteAndStartParams{
			LocalPath:  s.params.InstallerName,
			RemotePath: s.params.InstallerName,
		})

	case installStepWritingInstaller:
		status, err := op.ConsumeChild()
		if status != StatusSuccess {
			if err != nil {
				return err
			}
			return perr.New(perr.KindBadState, "install: failed to install %s", s.params.InstallerName)
		}
		s.installerPath = s.params.InstallerName
		return s.startSIS(ctx, op)

	case installStepWritingSIS:
		status, err := op.ConsumeChild()
		if status != StatusSuccess {
			if err != nil {
				return err
			}
			return perr.New(perr.KindBadState, "install: failed to install %s", s.params.SISPath)
		}
		op.SetStatus(StatusSuccess)
		return nil

	default:
		return perr.New(perr.KindBadState, "install: unreachable step %d", s.step)
	}
}

func (s *installStage) startSIS(ctx context.Context, op *Op) error {
	s.step = installStepWritingSIS
	op.SetDetail("installing " + s.params.SISPath)
	return op.Delegate(KindWriteAndStart, WriteAndStartParams{
		LocalPath:  s.params.SISPath,
		RemotePath: s.params.SISPath,
		Exec:       s.installerPath,
	})
}

func (s *installStage) Abort(ctx context.Context, op *Op, msg Message) error {
	op.SetStatus(StatusAborted)
	return nil
}

func (s *installStage) PreFinalise(ctx context.Context, op *Op) error  { return nil }
func (s *installStage) PostFinalise(ctx context.Context, op *Op) error { return nil }
