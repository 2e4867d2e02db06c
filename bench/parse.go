package bench

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// parseLine parses one "id,function,duration" line from an algorithm
// process. The language always comes from the pipeline, never from
// the line itself.
func parseLine(line, language string) (Result, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return Result{}, fmt.Errorf(
			"expected 3 comma-separated fields, got %d", len(parts),
		)
	}

	duration, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return Result{}, fmt.Errorf("parse duration %q: %w", parts[2], err)
	}

	return Result{
		ID:           parts[0],
		Language:     language,
		FunctionName: parts[1],
		Duration:     duration,
	}, nil
}

// scanLines invokes fn for every newline-delimited line in r, with
// the trailing newline stripped. Lines may be arbitrarily long: a
// child emitting an oversized line is a data problem for fn, never a
// stream error.
func scanLines(r io.Reader, fn func(line string) error) error {
	br := bufio.NewReader(r)

	for {
		line, err := br.ReadString('\n')

		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")

			if fnErr := fn(line); fnErr != nil {
				return fnErr
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}
	}
}

// emitResults reads algorithm stdout line by line and writes one JSON
// object per valid result to w. Empty lines are skipped; malformed
// lines are dropped with a single warning and the stream continues.
func emitResults(
	r io.Reader,
	w io.Writer,
	language string,
	logger *slog.Logger,
) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	err := scanLines(r, func(line string) error {
		if line == "" {
			return nil
		}

		result, err := parseLine(line, language)
		if err != nil {
			logger.Warn("malformed output line from algorithm",
				slog.String("line", line),
				slog.String("error", err.Error()),
			)

			return nil
		}

		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("algorithm stdout: %w", err)
	}

	return nil
}

// logStderr forwards a child's stderr lines to the logger as warnings
// tagged with the component name.
func logStderr(r io.Reader, component string, logger *slog.Logger) error {
	err := scanLines(r, func(line string) error {
		logger.Warn(line, slog.String("component", component))

		return nil
	})
	if err != nil {
		return fmt.Errorf("read %s stderr: %w", component, err)
	}

	return nil
}
