package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/app"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/dialog"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/orchestrator"
)

var (
	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7DCFFF")).
			PaddingLeft(2)

	clarifyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E0AF68")).
			PaddingLeft(2)

	fallbackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BB9AF7")).
			PaddingLeft(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F7768E")).
			PaddingLeft(2)

	suggestionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565F89")).
			Italic(true).
			PaddingLeft(4)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ECE6A")).
			Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565F89")).
			PaddingLeft(2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#C0CAF5")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B4261")).
			Padding(0, 1)
)

func chatCmd() *cobra.Command {
	var (
		sessionID string
		showMeta  bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		Long: `Start an interactive conversation. Commands:
  /reset   clear the conversation
  /sair    leave`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			a.Start()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			return chatLoop(cmd.Context(), a.Engine, sessionID, showMeta, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session id to continue")
	cmd.Flags().BoolVar(&showMeta, "meta", false, "show intent, confidence and timings")
	return cmd
}

func chatLoop(ctx context.Context, engine *orchestrator.Orchestrator, sessionID string, showMeta bool, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Fprintln(out, titleStyle.Render("RU Bot"))
	fmt.Fprintln(out, metaStyle.Render("Pergunte sobre horários, preços, cardápio ou localização. /sair para encerrar."))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render("você › "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())

		switch text {
		case "":
			continue
		case "/sair", "/quit", "/exit":
			return nil
		case "/reset":
			if err := engine.ResetSession(sessionID); err != nil {
				fmt.Fprintln(out, metaStyle.Render("Nenhuma conversa para limpar."))
			} else {
				fmt.Fprintln(out, metaStyle.Render("Conversa reiniciada."))
			}
			continue
		}

		res := engine.Process(ctx, orchestrator.Message{SessionID: sessionID, Text: text})
		fmt.Fprintln(out, renderResponse(res, showMeta))
	}
}

func renderResponse(res orchestrator.ProcessingResult, showMeta bool) string {
	var style lipgloss.Style
	switch res.Response.Type {
	case dialog.TypeClarification:
		style = clarifyStyle
	case dialog.TypeFallback:
		style = fallbackStyle
	case dialog.TypeError:
		style = errorStyle
	default:
		style = botStyle
	}

	var b strings.Builder
	b.WriteString(style.Render(res.Response.Text))
	for _, s := range res.Response.Suggestions {
		b.WriteString("\n")
		b.WriteString(suggestionStyle.Render("› " + s))
	}
	if showMeta {
		b.WriteString("\n")
		b.WriteString(metaStyle.Render(fmt.Sprintf("%s · %s · %.2f · %s · %.1fms",
			res.Response.Type,
			res.Response.Intent,
			res.Response.Confidence,
			res.SessionSnapshot.DialogState,
			res.Metrics.TotalMs,
		)))
	}
	return b.String()
}
