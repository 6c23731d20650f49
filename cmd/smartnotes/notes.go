package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/htonioni/smart-note-ai/internal/client"
	"github.com/htonioni/smart-note-ai/internal/config"
	"github.com/htonioni/smart-note-ai/internal/logging"
	"github.com/htonioni/smart-note-ai/internal/notes"
	"github.com/htonioni/smart-note-ai/internal/notify"
	"github.com/htonioni/smart-note-ai/internal/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type noteOperation func(ctx context.Context, noteSession *session.Session, out io.Writer) error

func newNotesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage notes through a running API",
	}

	defaults := config.NewViper()
	cmd.PersistentFlags().String("api-url", defaults.GetString("client.base_url"), "Base URL of the notes API")
	cmd.PersistentFlags().Int("timeout-seconds", defaults.GetInt("client.timeout_seconds"), "Request timeout in seconds")
	cmd.PersistentFlags().String("gate-answer", "", "Access gate answer (overrides env)")

	bindFlag(cmd, "client.base_url", "api-url")
	bindFlag(cmd, "client.timeout_seconds", "timeout-seconds")
	bindFlag(cmd, "client.gate_answer", "gate-answer")

	cmd.AddCommand(
		newListCommand(),
		newSearchCommand(),
		newCreateCommand(),
		newEditCommand(),
		newDeleteCommand(),
		newEnrichCommand(),
		newClearSummaryCommand(),
	)
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notes, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNoteOperation(cmd, func(_ context.Context, noteSession *session.Session, out io.Writer) error {
				printNotes(out, noteSession.Notes())
				return nil
			})
		},
	}
}

func newSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Filter notes by text or by a date expression such as \"last week\"",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runNoteOperation(cmd, func(_ context.Context, noteSession *session.Session, out io.Writer) error {
				noteSession.SetQuery(query)
				printNotes(out, noteSession.Filtered())
				return nil
			})
		},
	}
}

func newCreateCommand() *cobra.Command {
	var (
		title  string
		body   string
		withAI bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNoteOperation(cmd, func(ctx context.Context, noteSession *session.Session, out io.Writer) error {
				created, err := noteSession.Create(ctx, title, body, withAI)
				if err != nil {
					return err
				}
				printNote(out, created)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Note title")
	cmd.Flags().StringVar(&body, "body", "", "Note body")
	cmd.Flags().BoolVar(&withAI, "ai", false, "Generate tags and a summary before saving")
	return cmd
}

func newEditCommand() *cobra.Command {
	var (
		title   string
		body    string
		tags    []string
		summary string
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a note; unspecified fields keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			noteID, err := notes.NewNoteID(args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			return runNoteOperation(cmd, func(ctx context.Context, noteSession *session.Session, out io.Writer) error {
				note, ok := noteSession.Note(noteID)
				if !ok {
					return fmt.Errorf("note %s: %w", noteID, session.ErrNoteNotLoaded)
				}
				if flags.Changed("title") {
					note.Title = title
				}
				if flags.Changed("body") {
					note.Body = body
				}
				if flags.Changed("tags") {
					note.Tags = tags
				}
				if flags.Changed("summary") {
					note.Summary = notes.StringPointer(summary)
				}
				edited, err := noteSession.Edit(ctx, note)
				if err != nil {
					return err
				}
				printNote(out, edited)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&body, "body", "", "New body")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Replacement tags, comma separated")
	cmd.Flags().StringVar(&summary, "summary", "", "Replacement summary")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: runWithNoteID(func(ctx context.Context, noteSession *session.Session, noteID notes.NoteID, _ io.Writer) error {
			return noteSession.Delete(ctx, noteID)
		}),
	}
}

func newEnrichCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich <id>",
		Short: "Generate tags and a summary for a note",
		Args:  cobra.ExactArgs(1),
		RunE: runWithNoteID(func(ctx context.Context, noteSession *session.Session, noteID notes.NoteID, out io.Writer) error {
			enriched, err := noteSession.Enrich(ctx, noteID)
			if err != nil {
				return err
			}
			printNote(out, enriched)
			return nil
		}),
	}
}

func newClearSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-summary <id>",
		Short: "Remove the summary of a note",
		Args:  cobra.ExactArgs(1),
		RunE: runWithNoteID(func(ctx context.Context, noteSession *session.Session, noteID notes.NoteID, out io.Writer) error {
			cleared, err := noteSession.ClearSummary(ctx, noteID)
			if err != nil {
				return err
			}
			printNote(out, cleared)
			return nil
		}),
	}
}

func runWithNoteID(operation func(ctx context.Context, noteSession *session.Session, noteID notes.NoteID, out io.Writer) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		noteID, err := notes.NewNoteID(args[0])
		if err != nil {
			return err
		}
		return runNoteOperation(cmd, func(ctx context.Context, noteSession *session.Session, out io.Writer) error {
			return operation(ctx, noteSession, noteID, out)
		})
	}
}

// runNoteOperation loads the collection through the API, runs operation, and
// reports the notification left behind.
func runNoteOperation(cmd *cobra.Command, operation noteOperation) error {
	clientConfig, err := config.LoadClient(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewConsoleLogger(clientConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	apiClient, err := client.New(client.Config{
		BaseURL: clientConfig.BaseURL,
		Timeout: clientConfig.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if strings.TrimSpace(clientConfig.GateAnswer) != "" {
		if err := apiClient.Unlock(ctx, clientConfig.GateAnswer); err != nil {
			return fmt.Errorf("unlock access gate: %w", err)
		}
	}

	noteSession, err := session.New(session.Config{
		Repository: apiClient,
		Enricher:   apiClient,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	stream, stopNotifications := noteSession.Notifications().Subscribe(ctx)
	defer stopNotifications()
	go func() {
		for toast := range stream {
			logger.Debug("notification",
				zap.Bool("visible", toast.Visible),
				zap.String("severity", string(toast.Severity)),
				zap.String("message", toast.Message),
			)
		}
	}()

	if err := noteSession.Load(ctx); err != nil {
		printToast(cmd.ErrOrStderr(), noteSession.Notifications().Current())
		return err
	}

	operationErr := operation(ctx, noteSession, cmd.OutOrStdout())
	printToast(cmd.ErrOrStderr(), noteSession.Notifications().Current())
	return operationErr
}

func printToast(out io.Writer, toast notify.Toast) {
	if !toast.Visible {
		return
	}
	fmt.Fprintf(out, "[%s] %s\n", toast.Severity, toast.Message)
}

func printNotes(out io.Writer, collection []notes.Note) {
	if len(collection) == 0 {
		fmt.Fprintln(out, "no notes")
		return
	}
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tUPDATED\tTITLE\tTAGS")
	for _, note := range collection {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", note.ID, formatTimestamp(note.UpdatedAt), note.Title, strings.Join(note.Tags, ","))
	}
	_ = writer.Flush()
}

func printNote(out io.Writer, note notes.Note) {
	fmt.Fprintf(out, "#%s %s\n", note.ID, note.Title)
	fmt.Fprintf(out, "updated: %s\n", formatTimestamp(note.UpdatedAt))
	if note.Tags != nil {
		fmt.Fprintf(out, "tags: %s\n", strings.Join(note.Tags, ", "))
	}
	if note.Summary != nil {
		fmt.Fprintf(out, "summary: %s\n", *note.Summary)
	}
	fmt.Fprintf(out, "\n%s\n", note.Body)
}

func formatTimestamp(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04")
}
