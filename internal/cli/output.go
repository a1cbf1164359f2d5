package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/askai/askai/internal/pipeline"
)

const dateLayout = "2006-01-02"

// printOutcome writes the user-facing rendering of out.
func printOutcome(w io.Writer, out pipeline.Outcome) {
	switch out.Kind {
	case pipeline.KindCompleted:
		switch {
		case out.Suppressed:
			fmt.Fprintln(w, "[The model's reply was flagged by moderation and is not shown.]")
		case out.OutputModerated:
			fmt.Fprintln(w, "[The model's reply was flagged by moderation. It is shown once and will not be used as context.]")
			fmt.Fprintln(w, out.AssistantText)
		default:
			fmt.Fprintln(w, out.AssistantText)
		}
		fmt.Fprintf(w, "\n(cost $%.6f)\n", out.Cost.Total())
	case pipeline.KindBlocked:
		fmt.Fprintln(w, "Your message was flagged by content moderation and was not sent. Please rephrase it.")
	case pipeline.KindNeedsConfirmation:
		fmt.Fprintln(w, "Your message may contain sensitive information:")
		for _, e := range out.Entities {
			fmt.Fprintf(w, "  - %s (score %.2f)\n", e.Type, e.Score)
		}
	case pipeline.KindWithheld:
		fmt.Fprintln(w, "Your message was not sent. Remove the sensitive information and try again:")
		fmt.Fprintln(w, out.RetryText)
	case pipeline.KindErrored:
		if out.Transient {
			fmt.Fprintln(w, "The model service is temporarily unavailable. Please try again:")
		} else {
			fmt.Fprintln(w, "The request failed and the operators have been notified. You can try again:")
		}
		fmt.Fprintln(w, out.RetryText)
	case pipeline.KindTooLong:
		fmt.Fprintln(w, "Your message is too long for this model. Please shorten it.")
	default:
		fmt.Fprintf(w, "Unexpected outcome %q\n", out.Kind)
	}
	if out.ConversationID != "" && out.Kind != pipeline.KindNeedsConfirmation {
		fmt.Fprintf(w, "(conversation %s)\n", out.ConversationID)
	}
}

// parseYesNo interprets an answer to a yes/no prompt.
func parseYesNo(answer string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	}
	return false, fmt.Errorf("answer %q is not yes or no", strings.TrimSpace(answer))
}

// askSensitive prompts until the user says whether their message is
// sensitive.
func askSensitive(in *bufio.Reader, w io.Writer) (bool, error) {
	for {
		fmt.Fprint(w, "Does it contain sensitive information? [y/n] ")
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return false, err
		}
		sensitive, perr := parseYesNo(line)
		if perr == nil {
			return sensitive, nil
		}
		if errors.Is(err, io.EOF) {
			return false, err
		}
	}
}

func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// withSpinner runs fn while a spinner turns on stderr. The spinner only shows
// on a terminal.
func withSpinner[T any](ctx context.Context, description string, fn func(context.Context) (T, error)) (T, error) {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return fn(ctx)
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("  "+description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(100 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				_ = bar.Add(1)
			}
		}
	}()
	v, err := fn(ctx)
	close(done)
	_ = bar.Finish()
	return v, err
}

// dateRange parses inclusive YYYY-MM-DD bounds in local time. Empty bounds
// stay open.
func dateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	var from, to time.Time
	if fromStr != "" {
		t, err := time.ParseInLocation(dateLayout, fromStr, time.Local)
		if err != nil {
			return from, to, fmt.Errorf("invalid --from date %q (want YYYY-MM-DD)", fromStr)
		}
		from = t
	}
	if toStr != "" {
		t, err := time.ParseInLocation(dateLayout, toStr, time.Local)
		if err != nil {
			return from, to, fmt.Errorf("invalid --to date %q (want YYYY-MM-DD)", toStr)
		}
		to = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, errors.New("--to is before --from")
	}
	return from, to, nil
}
