package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	ShareTitle = "My meme"
	ShareText  = "Check out this meme I made!"

	// waitDelay bounds how long a cancelled command may keep its output pipes open.
	waitDelay = 2 * time.Second
)

var (
	ErrShareUnsupported = errors.New("sharing is not supported on this host")
	ErrShareCancelled   = errors.New("share was cancelled")
	ErrShareFailed      = errors.New("share failed")
)

// Sharer hands a rendered meme to something outside the service.
type Sharer interface {
	Share(ctx context.Context, file File) error
}

// CommandSharer runs an OS command with the meme written to a temporary file. The
// file path is appended to Args; title and text are passed as MEME_TITLE and MEME_TEXT.
type CommandSharer struct {
	Command string
	Args    []string
}

func NewCommandSharer(command string, args []string) *CommandSharer {
	return &CommandSharer{Command: command, Args: args}
}

func (s *CommandSharer) Share(ctx context.Context, file File) error {
	if s == nil || strings.TrimSpace(s.Command) == "" {
		return ErrShareUnsupported
	}
	if _, err := exec.LookPath(s.Command); err != nil {
		slog.Warn("share command not found", "command", s.Command, "error", err)
		return ErrShareUnsupported
	}

	dir, err := os.MkdirTemp("", "meme-share-")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrShareFailed, err)
	}
	defer func() {
		if rerr := os.RemoveAll(dir); rerr != nil {
			slog.Warn("failed to remove share directory", "dir", dir, "error", rerr)
		}
	}()

	path := filepath.Join(dir, file.Name)
	if err := os.WriteFile(path, file.PNG, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrShareFailed, err)
	}

	args := append(append([]string{}, s.Args...), path)
	cmd := exec.CommandContext(ctx, s.Command, args...)
	cmd.WaitDelay = waitDelay
	cmd.Env = append(os.Environ(), "MEME_TITLE="+ShareTitle, "MEME_TEXT="+ShareText)
	output, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrShareCancelled, ctx.Err())
	}
	if err != nil {
		slog.Warn("share command failed", "command", s.Command, "error", err, "output", strings.TrimSpace(string(output)))
		return fmt.Errorf("%w: %v", ErrShareFailed, err)
	}
	slog.Info("meme shared", "command", s.Command, "file", file.Name)
	return nil
}
