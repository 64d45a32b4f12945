// Package clipboard copies text to the system clipboard, falling back to an
// OSC 52 escape sequence so copies work over SSH and inside terminal
// multiplexers where no desktop clipboard is reachable.
package clipboard

import (
	"errors"
	"os"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"
)

// ErrNoClipboard indicates no copy mechanism is available: the desktop
// clipboard failed and stderr is not a terminal for OSC 52.
var ErrNoClipboard = errors.New("no clipboard available")

// Copy places text on the clipboard. The desktop clipboard is tried first;
// when it is unavailable the text is emitted as an OSC 52 sequence on the
// controlling terminal.
func Copy(text string) error {
	if !clipboard.Unsupported {
		if err := clipboard.WriteAll(text); err == nil {
			return nil
		}
	}
	// stderr is the terminal channel; stdout may be piped.
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return ErrNoClipboard
	}
	seq := osc52.New(text)
	if os.Getenv("TMUX") != "" {
		seq = seq.Tmux()
	} else if os.Getenv("TERM") == "screen" {
		seq = seq.Screen()
	}
	if _, err := seq.WriteTo(os.Stderr); err != nil {
		return errors.Join(ErrNoClipboard, err)
	}
	return nil
}
