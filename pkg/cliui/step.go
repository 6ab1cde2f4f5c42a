package cliui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	elapsedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// spinnerFrames matches bubbletea's spinner.Dot pattern used in the chat TUI.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const spinnerInterval = 80 * time.Millisecond

// Step runs fn and reports it as one status line ending in a ✓ or ✗ and the
// elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	return StepSummary(w, msg, func() (string, error) {
		return "", fn()
	})
}

// StepSummary is Step for work that ends with a short summary, such as
// "2 embedded, 5 reused". The summary is printed after the elapsed time and
// only on success.
//
// On a terminal the line shows a spinner while fn runs. Elsewhere only the
// final line is written so logs and pipes stay clean.
func StepSummary(w io.Writer, msg string, fn func() (string, error)) error {
	var (
		stop chan struct{}
		wg   sync.WaitGroup
	)
	if IsTerminal(w) {
		stop = make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			spin(w, msg, stop)
		}()
	}

	start := time.Now()
	summary, err := fn()
	elapsed := time.Since(start)

	prefix := ""
	if stop != nil {
		close(stop)
		wg.Wait()
		prefix = "\r"
	}

	line := fmt.Sprintf("%s  %s %s %s", prefix, Mark(err), msg, elapsedStyle.Render("("+FormatDuration(elapsed)+")"))
	if err == nil && summary != "" {
		line += " " + DimStyle.Render(summary)
	}
	fmt.Fprintln(w, line)

	return err
}

func spin(w io.Writer, msg string, stop <-chan struct{}) {
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		fmt.Fprintf(w, "\r  %s %s", spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]), msg)
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
