// Command receipt-parse prints the fields found in receipt text.
//
//	receipt-parse [--date-order day-first] [file]
//
// With no file, the text is read from stdin.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/expense-tracker/internal/parsing"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := ff.NewFlagSet("receipt-parse")
	var (
		dateOrder = fs.StringLong("date-order", "month-first", "How to read ambiguous dates: month-first or day-first")
		verbose   = fs.BoolLong("verbose", "Log extraction details to stderr")
	)

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("EXPENSE_TRACKER")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		return err
	}

	order, ok := parsing.ParseDateOrder(*dateOrder)
	if !ok {
		return fmt.Errorf("invalid date order %q: use month-first or day-first", *dateOrder)
	}

	input := stdin
	if rest := fs.GetArgs(); len(rest) > 0 {
		f, err := os.Open(rest[0])
		if err != nil {
			return fmt.Errorf("opening receipt text: %w", err)
		}
		defer f.Close()
		input = f
	}

	text, err := io.ReadAll(input)
	if err != nil {
		return fmt.Errorf("reading receipt text: %w", err)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	parser := parsing.NewParser(parsing.WithDateOrder(order), parsing.WithLogger(logger))
	out, err := json.MarshalIndent(parser.Parse(string(text)), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = fmt.Fprintln(stdout, string(out))
	return err
}
