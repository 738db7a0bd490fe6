package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/transcript"
)

func transcriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Inspect recorded conversations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := transcript.Open(cfg.Transcript.Path)
			if err != nil {
				return err
			}
			defer ts.Close()

			sessions, err := ts.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recorded sessions.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SESSION\tTURNS\tFIRST SEEN\tLAST SEEN")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
					s.SessionID, s.Turns,
					s.FirstSeen.Local().Format(time.DateTime),
					s.LastSeen.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	})

	var limit int
	list := &cobra.Command{
		Use:   "show [session]",
		Short: "Show the turns of one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := transcript.Open(cfg.Transcript.Path)
			if err != nil {
				return err
			}
			defer ts.Close()

			records, err := ts.List(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("no turns recorded for session %s", args[0])
			}

			out := cmd.OutOrStdout()
			for _, r := range records {
				fmt.Fprintln(out, metaStyle.Render(fmt.Sprintf("%s · %s · %s · %.2f · %.1fms",
					r.Timestamp.Local().Format(time.DateTime), r.ResponseType, r.Intent, r.Confidence, r.TotalMs)))
				fmt.Fprintln(out, promptStyle.Render("você › ")+r.UserMessage)
				fmt.Fprintln(out, botStyle.Render(r.BotResponse))
				if len(r.Tools) > 0 {
					fmt.Fprintln(out, suggestionStyle.Render(fmt.Sprintf("tools: %v", r.Tools)))
				}
				if r.Error != "" {
					fmt.Fprintln(out, errorStyle.Render(r.Error))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 100, "maximum number of turns")
	cmd.AddCommand(list)

	return cmd
}
