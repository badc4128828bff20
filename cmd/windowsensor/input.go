package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nerrad567/windowsensor/internal/window"
)

// transition is one "<from> <to>" line from the sensor logic.
type transition struct {
	from window.State
	to   window.State
}

func parseTransition(line string) (transition, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return transition{}, fmt.Errorf("want \"<from> <to>\", got %q", line)
	}

	var states [2]window.State
	for i, f := range fields {
		code, err := strconv.Atoi(f)
		if err != nil {
			return transition{}, fmt.Errorf("state %q is not a number", f)
		}
		if states[i], err = window.ParseState(code); err != nil {
			return transition{}, err
		}
	}
	return transition{from: states[0], to: states[1]}, nil
}

// readTransitions parses r line by line until EOF or ctx ends. Blank lines
// and lines starting with '#' are skipped; malformed lines are logged.
// A nil reader yields a nil channel.
func readTransitions(ctx context.Context, r io.Reader, log *slog.Logger) <-chan transition {
	if r == nil {
		return nil
	}

	out := make(chan transition)
	go func() {
		defer close(out)

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			t, err := parseTransition(line)
			if err != nil {
				log.Warn("ignoring transition input", "error", err)
				continue
			}

			select {
			case out <- t:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Warn("transition input closed", "error", err)
		}
	}()
	return out
}
