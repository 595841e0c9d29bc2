// Package upload resolves a remote destination directory and uploads the files of a local
// directory into it.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/hwuu/diskup/internal/remote"
)

const (
	MsgInvalidToken = "Invalid OAuthToken"
	MsgUnhandled    = "Unhandled exception"
)

// Outcome tells how a run ended. Every outcome is a normal termination for the process.
type Outcome int

const (
	OutcomeUploaded Outcome = iota
	OutcomeUsage
	OutcomeNoDirectory
	OutcomeNoFiles
	OutcomeNotAuthorized
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUploaded:
		return "uploaded"
	case OutcomeUsage:
		return "usage"
	case OutcomeNoDirectory:
		return "no-directory"
	case OutcomeNoFiles:
		return "no-files"
	case OutcomeNotAuthorized:
		return "not-authorized"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Runner validates the arguments, connects to the backend and runs the batch.
type Runner struct {
	Open   remote.OpenFunc
	Output io.Writer
	Logger zerolog.Logger
	Jobs   int
	// AuthMessage is shown when the backend rejects the credential. Defaults to MsgInvalidToken.
	AuthMessage string
}

func (r *Runner) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.Output, format, args...)
}

// Run executes one batch for args = [localDir, remoteDir]. Failures are logged and reported
// on Output; none of them escapes as an error.
func (r *Runner) Run(ctx context.Context, args []string) Outcome {
	if len(args) < 2 {
		r.printf("First argument is the path to directory in your computer\n")
		r.printf("Second argument is the path to directory in the remote storage\n")
		return OutcomeUsage
	}

	localDir, remoteDir := args[0], args[1]

	files, err := ListFiles(localDir)
	if errors.Is(err, ErrNoDirectory) {
		r.printf("There is no directory: %s\n", localDir)
		return OutcomeNoDirectory
	}
	if err != nil {
		return r.fail(err)
	}
	if len(files) == 0 {
		r.printf("There is no files in directory: %s\n", localDir)
		return OutcomeNoFiles
	}

	if err := r.upload(ctx, files, remoteDir); err != nil {
		return r.fail(err)
	}
	return OutcomeUploaded
}

func (r *Runner) upload(ctx context.Context, files []string, remoteDir string) error {
	storage, err := r.Open(ctx)
	if err != nil {
		return err
	}
	defer storage.Close()

	resolver := &Resolver{Storage: storage, Logger: r.Logger}
	dest, err := resolver.Resolve(ctx, remoteDir)
	if err != nil {
		return err
	}
	r.Logger.Debug().Str("destination", dest).Int("files", len(files)).Msg("destination resolved")

	uploader := &Uploader{
		Storage: storage,
		Output:  r.Output,
		Logger:  r.Logger,
		Jobs:    r.Jobs,
	}
	return uploader.UploadAll(ctx, files, dest)
}

func (r *Runner) fail(err error) Outcome {
	if errors.Is(err, remote.ErrNotAuthorized) {
		msg := r.AuthMessage
		if msg == "" {
			msg = MsgInvalidToken
		}
		r.Logger.Error().Err(err).Msg(msg)
		r.printf("%s\n", msg)
		return OutcomeNotAuthorized
	}

	r.Logger.Error().Err(err).Msg(MsgUnhandled)
	r.printf("%s\n", MsgUnhandled)
	return OutcomeFailed
}
