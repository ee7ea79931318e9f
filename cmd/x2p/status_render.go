package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"xia2pipe/internal/preflight"
	"xia2pipe/internal/status"
)

type lineKind int

const (
	kindInfo lineKind = iota
	kindOK
	kindWarn
	kindError
)

type lineStyle struct {
	label string
	color string
}

const ansiReset = "\x1b[0m"

var lineStyles = map[lineKind]lineStyle{
	kindInfo:  {label: "INFO", color: "\x1b[34m"},
	kindOK:    {label: "OK", color: "\x1b[32m"},
	kindWarn:  {label: "WARN", color: "\x1b[33m"},
	kindError: {label: "ERROR", color: "\x1b[31m"},
}

const labelWidth = 20

// lifecycleKind maps an item's stage status to a line kind.
func lifecycleKind(s status.Status) lineKind {
	switch s {
	case status.Finished:
		return kindOK
	case status.Failed:
		return kindError
	default:
		return kindInfo
	}
}

func checkKind(r preflight.Result) lineKind {
	switch {
	case !r.Passed:
		return kindError
	case r.Degraded:
		return kindWarn
	default:
		return kindOK
	}
}

// renderStatusLine renders "  label:   [KIND] message", padded so that kinds
// line up.
func renderStatusLine(label string, kind lineKind, message string, colorize bool) string {
	style := lineStyles[kind]
	text := "[" + style.label + "]"
	if message != "" {
		text += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", labelWidth, label+":", text)
	if colorize {
		return style.color + line + ansiReset
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	line := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(line))
	if colorize {
		color := lineStyles[kindInfo].color
		return []string{color + line + ansiReset, color + rule + ansiReset}
	}
	return []string{line, rule}
}

// shouldColorize reports whether w is a terminal and NO_COLOR is unset.
func shouldColorize(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
