package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/byte4ever/depmr/updater/creator"
)

const (
	outputText = "text"
	outputJSON = "json"
)

type result struct {
	State  string `json:"state"`
	DryRun bool   `json:"dry_run,omitempty"`
	ID     int64  `json:"id,omitempty"`
	URL    string `json:"url,omitempty"`
}

// checkOutput rejects an unknown result format before
// anything is changed on the platform.
func checkOutput(format string) error {
	switch format {
	case outputText, outputJSON, "":
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// writeResult prints res in format.
func writeResult(
	w io.Writer,
	format string,
	res creator.Result,
	dryRun bool,
) error {
	const errCtx = "writing result"

	out := result{State: res.State.String(), DryRun: dryRun}
	if res.MergeRequest != nil {
		out.ID = res.MergeRequest.ID
		out.URL = res.MergeRequest.WebURL
	}

	switch format {
	case outputJSON:
		if err := json.NewEncoder(w).Encode(out); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	case outputText, "":
		line := out.State
		if out.URL != "" {
			line += " " + out.URL
		}

		if dryRun {
			line += " (dry run)"
		}

		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	default:
		return fmt.Errorf("%s: unknown format %q", errCtx, format)
	}

	return nil
}
