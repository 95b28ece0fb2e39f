/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"io"
	"time"

	"chainguard.dev/issueforge/orchestrator"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// newReportTable creates a table writer with the formatting used for session
// reports.
func newReportTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		MaxWidth: 100,
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// printReport renders one row per attempt, then the terminal state.
func printReport(w io.Writer, outcome *orchestrator.Outcome) {
	table := newReportTable([]string{"Attempt", "Action", "State", "Tests", "Elapsed", "Note"}, w)

	for _, rec := range outcome.Records {
		_ = table.Append([]string{
			fmt.Sprintf("%d", rec.Attempt),
			rec.Payload.String(),
			string(rec.State),
			testsCell(rec),
			rec.Elapsed.Round(time.Millisecond).String(),
			noteCell(rec),
		})
	}
	_ = table.Render()

	fmt.Fprintf(w, "\nSession %s after %d attempts.\n", outcome.State, len(outcome.Records))
	if outcome.PR != nil {
		fmt.Fprintf(w, "Pull request: %s\n", outcome.PR.URL)
	}
}

func testsCell(rec orchestrator.Record) string {
	switch {
	case rec.Test == nil:
		return "-"
	case rec.Test.Success:
		return "pass"
	case rec.Test.TimedOut:
		return "timeout"
	default:
		return "fail"
	}
}

func noteCell(rec orchestrator.Record) string {
	switch {
	case rec.Err != nil:
		return rec.Err.Error()
	case rec.Publish != nil:
		return rec.Publish.URL
	default:
		return ""
	}
}
