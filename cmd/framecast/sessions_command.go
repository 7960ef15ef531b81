package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"framecast/internal/ipc"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect the daemon's encode session journal",
	}

	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsClearCommand(ctx))

	return sessionsCmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List encode sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SessionList(statusFilter)
				if err != nil {
					return fmt.Errorf("list sessions: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(resp.Items) == 0 {
					fmt.Fprintln(out, "No sessions recorded")
					return nil
				}

				headers := []string{"ID", "Status", "FPS", "Frames", "Bytes In", "Artifact", "Updated"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft}
				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					frames := strconv.Itoa(item.ReceivedFrames)
					if item.DeclaredFrames > 0 {
						frames = fmt.Sprintf("%d/%d", item.ReceivedFrames, item.DeclaredFrames)
					}
					rows = append(rows, []string{
						shortID(item.ID),
						item.Status,
						strconv.Itoa(item.FrameRate),
						frames,
						strconv.FormatInt(item.BytesReceived, 10),
						strconv.FormatInt(item.ArtifactBytes, 10),
						item.UpdatedAt,
					})
				}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))

				for _, item := range resp.Items {
					if msg := strings.TrimSpace(item.ErrorMessage); msg != "" {
						fmt.Fprintf(out, "  %s: %s\n", shortID(item.ID), msg)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statusFilter, "status", nil, "Filter by status (receiving, encoding, completed, failed)")
	return cmd
}

func newSessionsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove finished sessions from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SessionsClear()
				if err != nil {
					return fmt.Errorf("clear sessions: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d finished sessions\n", resp.Removed)
				return nil
			})
		},
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
