// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package logger

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var colors = map[string]string{
	"trace": "\033[36m", // Cyan
	"debug": "\033[33m", // Yellow
	"info":  "\033[34m", // Blue
	"warn":  "\033[33m", // Yellow
	"error": "\033[31m", // Red
	"fatal": "\033[35m", // Magenta
	"panic": "\033[35m", // Magenta
}

// Init initializes the global logger, colored when stdout is a terminal
func Init(level string) {
	log.Logger = New(os.Stdout, level, isTerminal(os.Stdout))
}

// New builds a console logger writing to out
func New(out io.Writer, level string, color bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:     out,
		NoColor: !color,
		FormatLevel: func(i interface{}) string {
			level, ok := i.(string)
			if !ok {
				return "???"
			}
			if !color {
				return strings.ToUpper(level)
			}
			c := colors[level]
			if c == "" {
				c = "\033[37m" // Default to white
			}
			return c + strings.ToUpper(level) + "\033[0m"
		},
	}

	return zerolog.New(output).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// ParseLevel maps a configured level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
