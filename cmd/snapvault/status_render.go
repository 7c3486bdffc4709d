package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusStyles = map[statusKind]struct {
	tag   string
	color string
}{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

const ansiReset = "\x1b[0m"

// statusPrinter writes aligned "label: [TAG] detail" lines, colored only when
// the destination is a terminal.
type statusPrinter struct {
	out        io.Writer
	colorize   bool
	labelWidth int
	sections   int
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{out: out, colorize: shouldColorize(out), labelWidth: 22}
}

func (p *statusPrinter) section(title string) {
	if p.sections > 0 {
		fmt.Fprintln(p.out)
	}
	p.sections++
	p.paint(statusStyles[statusInfo].color, "== "+title+" ==")
}

func (p *statusPrinter) line(label string, kind statusKind, detail string) {
	style := statusStyles[kind]
	text := fmt.Sprintf("  %-*s [%s]", p.labelWidth, label+":", style.tag)
	if detail != "" {
		text += " " + detail
	}
	p.paint(style.color, text)
}

func (p *statusPrinter) paint(color, text string) {
	if p.colorize && color != "" {
		text = color + text + ansiReset
	}
	fmt.Fprintln(p.out, text)
}

func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
