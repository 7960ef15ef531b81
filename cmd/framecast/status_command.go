package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"framecast/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and accelerator status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return fmt.Errorf("query status: %w", err)
				}
				renderStatus(cmd, status)
				return nil
			})
		},
	}
}

func renderStatus(cmd *cobra.Command, status *ipc.StatusResponse) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	runningKind := statusError
	if status.Running {
		runningKind = statusOK
	}
	fmt.Fprintln(out, renderStatusLine("Running", runningKind, yesNo(status.Running), colorize))
	fmt.Fprintln(out, renderStatusLine("PID", statusInfo, fmt.Sprintf("%d", status.PID), colorize))
	fmt.Fprintln(out, renderStatusLine("Bind", statusInfo, status.Bind, colorize))
	fmt.Fprintln(out, renderStatusLine("Journal", statusInfo, status.JournalPath, colorize))
	fmt.Fprintln(out, renderStatusLine("Lock", statusInfo, status.LockPath, colorize))

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Accelerator", colorize) {
		fmt.Fprintln(out, line)
	}
	accelKind := statusError
	accelMsg := "not available"
	if status.Accelerated {
		accelKind = statusOK
		accelMsg = "nvenc ready"
	}
	fmt.Fprintln(out, renderStatusLine("Hardware encode", accelKind, accelMsg, colorize))
	fmt.Fprintln(out, renderStatusLine("Scaler", statusInfo, status.Scaler, colorize))
	if detail := strings.TrimSpace(status.AccelDetail); detail != "" {
		fmt.Fprintln(out, renderStatusLine("Detail", statusWarn, detail, colorize))
	}

	if len(status.Dependencies) > 0 {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Dependencies", colorize) {
			fmt.Fprintln(out, line)
		}
		for _, dep := range status.Dependencies {
			kind := statusError
			msg := "missing"
			if dep.Available {
				kind = statusOK
				msg = dep.Detail
			} else if dep.Detail != "" {
				msg = dep.Detail
			}
			fmt.Fprintln(out, renderStatusLine(dep.Name, kind, msg, colorize))
		}
	}

	if len(status.SessionStats) > 0 {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Sessions", colorize) {
			fmt.Fprintln(out, line)
		}
		names := make([]string, 0, len(status.SessionStats))
		for name := range status.SessionStats {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintln(out, renderStatusLine(name, statusInfo,
				fmt.Sprintf("%d", status.SessionStats[name]), colorize))
		}
	}
}
