package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goliatone/go-formbridge/core"
)

func writeJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func writeSweepReport(out io.Writer, report core.SweepReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "policy: %s", report.Policy)
	if report.DryRun {
		fmt.Fprint(w, " (dry run)")
	}
	fmt.Fprintf(w, "\n\nFORM\tTITLE\tSTATUS\tACTIONS\tERROR\n")
	for _, outcome := range report.Forms {
		actions := outcome.Applied
		if report.DryRun {
			actions = outcome.Plan.Actions
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			outcome.Form.ID,
			outcome.Form.Title,
			outcome.Status,
			describeActions(actions),
			outcome.Error,
		)
	}
	fmt.Fprintf(w, "\nregistered: %d  already correct: %d  corrected: %d  failed: %d\n",
		len(report.Registered()),
		len(report.AlreadyCorrect()),
		len(report.Corrected()),
		len(report.Failed()),
	)
	return w.Flush()
}

func writeAuditReport(out io.Writer, report core.AuditReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "canonical: %s\n\nFORM\tTITLE\tSTATE\tWEBHOOKS\n", report.CanonicalURL)
	for _, audit := range report.Forms {
		urls := make([]string, 0, len(audit.Registrations))
		for _, registration := range audit.Registrations {
			urls = append(urls, registration.URL)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", audit.Form.ID, audit.Form.Title, auditState(audit), strings.Join(urls, ", "))
	}
	return w.Flush()
}

func auditState(audit core.FormAudit) string {
	switch {
	case audit.Error != "":
		return "error: " + audit.Error
	case audit.Converged:
		return "ok"
	case audit.CanonicalPresent:
		return "drifted"
	default:
		return "missing"
	}
}

func describeActions(actions []core.Action) string {
	if len(actions) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(actions))
	for _, action := range actions {
		parts = append(parts, string(action.Kind)+" "+action.URL)
	}
	return strings.Join(parts, "; ")
}
