package main

import (
	"bytes"
	"testing"
)

func TestStatusPrinterAlignsAndSeparatesSections(t *testing.T) {
	var buf bytes.Buffer
	p := newStatusPrinter(&buf)
	p.section("Checks")
	p.line("Album root", statusOK, "/srv/album (read/write ok)")
	p.section("Captures")
	p.line("Total", statusInfo, "")

	want := "== Checks ==\n" +
		"  Album root:            [OK] /srv/album (read/write ok)\n" +
		"\n" +
		"== Captures ==\n" +
		"  Total:                 [INFO]\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestStatusPrinterColorsWhenForced(t *testing.T) {
	var buf bytes.Buffer
	p := newStatusPrinter(&buf)
	p.colorize = true
	p.line("Frame source", statusError, "missing")

	want := "\x1b[31m  Frame source:          [ERROR] missing\x1b[0m\n"
	if buf.String() != want {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
