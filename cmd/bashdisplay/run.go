package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/deixis/bashdisplay/internal/cell"
	"github.com/deixis/bashdisplay/internal/runner"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	noticeColor  = color.New(color.FgYellow, color.Bold)
	displayColor = color.New(color.FgCyan)
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a bash cell from a file or stdin",
	Long: `Runs the cell in a fresh bash process. Each "display <file>" call in the
cell prints a [display] line; --save copies the images into a directory.
Ctrl-C interrupts the cell, escalating to SIGTERM and SIGKILL if needed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		save, _ := cmd.Flags().GetString("save")

		src, err := readCell(args)
		if err != nil {
			return err
		}

		w, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer w.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		magic := &cell.Magic{
			Runner: w.Runner(),
			Images: cell.NewImageLoader(w.Dir),
			Store:  w.Store,
			Logger: w.Logger,
		}

		stdout := bufio.NewWriter(os.Stdout)
		defer stdout.Flush()

		env := cell.Env{
			Stdout:  stdout,
			Stderr:  os.Stderr,
			Notice:  noticeWriter{os.Stderr},
			Display: &terminalRenderer{w: stdout, fs: afero.NewOsFs(), saveDir: save},
		}

		out, err := magic.Run(ctx, string(src), env)
		if err != nil {
			return err
		}
		return cellStatus(out)
	},
}

func init() {
	runCmd.Flags().String("save", "", "copy displayed images into this directory")
	rootCmd.AddCommand(runCmd)
}

func readCell(args []string) ([]byte, error) {
	if len(args) == 1 && args[0] != "-" {
		return os.ReadFile(args[0])
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("no cell given: pass a file or pipe the cell on stdin")
	}
	return io.ReadAll(os.Stdin)
}

// cellStatus maps the outcome to the process exit status, using the
// shell's conventions for a missing program and an interrupt.
func cellStatus(out *cell.Outcome) error {
	switch out.State {
	case runner.StateSpawnFailed:
		return exitCode(127)
	case runner.StateInterrupted:
		return exitCode(130)
	}
	if out.ExitCode != 0 {
		return exitCode(out.ExitCode)
	}
	return nil
}

// noticeWriter colours host notices.
type noticeWriter struct {
	w io.Writer
}

func (n noticeWriter) Write(p []byte) (int, error) {
	if _, err := noticeColor.Fprint(n.w, string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// terminalRenderer describes each image on a line of its own and
// optionally copies it into saveDir.
type terminalRenderer struct {
	w       io.Writer
	fs      afero.Fs
	saveDir string
}

func (r *terminalRenderer) Render(img *cell.Image) error {
	if _, err := displayColor.Fprintf(r.w, "[display] %s (%s %dx%d)\n", img.Path, img.Format, img.Width, img.Height); err != nil {
		return err
	}
	if r.saveDir == "" {
		return nil
	}
	if err := r.fs.MkdirAll(r.saveDir, 0o755); err != nil {
		return fmt.Errorf("saving %s: %w", img.Path, err)
	}
	dst := filepath.Join(r.saveDir, filepath.Base(img.Path))
	if err := afero.WriteFile(r.fs, dst, img.Data, 0o644); err != nil {
		return fmt.Errorf("saving %s: %w", img.Path, err)
	}
	return nil
}
