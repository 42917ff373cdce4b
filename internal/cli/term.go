package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"feedsync/internal/models"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgHiRed, color.Bold)
	authorColor  = color.New(color.FgCyan, color.Bold)
	dimColor     = color.New(color.Faint)
)

const timeLayout = "2006-01-02 15:04"

func (a *App) success(format string, args ...any) {
	successColor.Fprint(a.io.Out, "✔ ")
	fmt.Fprintf(a.io.Out, format+"\n", args...)
}

// PrintError writes the user-facing message of err.
func PrintError(w io.Writer, err error) {
	errorColor.Fprint(w, "✘ ")
	fmt.Fprintln(w, models.UserMessage(err, err.Error()))
}

// prompt reads one line after printing label.
func (a *App) prompt(label string) (string, error) {
	fmt.Fprint(a.io.Err, label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSpace(strings.TrimSuffix(label, ":")), err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads a line without echo when stdin is a terminal.
func (a *App) promptSecret(label string) (string, error) {
	f, ok := a.io.In.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return a.prompt(label)
	}
	fmt.Fprint(a.io.Err, label)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(a.io.Err)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// valueOr returns v, prompting for it when empty.
func (a *App) valueOr(v, label string, secret bool) (string, error) {
	if v != "" {
		return v, nil
	}
	if secret {
		return a.promptSecret(label)
	}
	return a.prompt(label)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
