package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"docuflow/internal/bootstrap"
	"docuflow/internal/jobs"
)

func jobsCmd(build appFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage pipeline jobs",
	}
	cmd.AddCommand(jobsEnqueueCmd(build), jobsRetryCmd(build), jobsListCmd(build))
	return cmd
}

func jobsEnqueueCmd(build appFactory) *cobra.Command {
	var (
		typ        string
		documentID string
		priority   int
		format     string
	)
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Enqueue a stage job for a document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobType := jobs.Type(strings.ToUpper(strings.TrimSpace(typ)))
			if !jobType.Valid() {
				return fmt.Errorf("unknown job type %q", typ)
			}
			return withApp(cmd, build, func(app *bootstrap.App) error {
				ctx := cmd.Context()
				doc, err := app.DocumentsService.Repo.GetByID(ctx, documentID)
				if err != nil {
					return fmt.Errorf("document %s: %w", documentID, err)
				}
				var payload any
				switch jobType {
				case jobs.TypeOCR:
					payload = jobs.OCRPayload{DocumentID: doc.ID, SHA256: doc.SHA256, Filename: doc.OriginalName, MimeType: doc.MimeType}
				case jobs.TypeParsing:
					payload = jobs.ParsingPayload{DocumentID: doc.ID, SHA256: doc.SHA256}
				case jobs.TypeValidation:
					payload = jobs.ValidationPayload{DocumentID: doc.ID}
				case jobs.TypeExport:
					payload = jobs.ExportPayload{DocumentID: doc.ID, Format: strings.ToUpper(format)}
				}
				job, err := app.JobsService.Enqueue(ctx, jobs.EnqueueOptions{
					Type:        jobType,
					Payload:     payload,
					Priority:    priority,
					MaxAttempts: app.Config.JobMaxAttempts,
					DocumentID:  &doc.ID,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s job %s\n", job.Type, job.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "job type: OCR, PARSING, VALIDATION or EXPORT")
	cmd.Flags().StringVar(&documentID, "document", "", "document id")
	cmd.Flags().IntVar(&priority, "priority", jobs.StagePriority, "priority 0..10, higher runs first")
	cmd.Flags().StringVar(&format, "format", jobs.FormatPDF, "export format for EXPORT jobs: PDF or CSV")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("document")
	return cmd
}

func jobsRetryCmd(build appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "retry ID",
		Short: "Requeue a failed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, build, func(app *bootstrap.App) error {
				job, err := app.JobsService.Retry(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "job %s is %s\n", job.ID, job.Status)
				return nil
			})
		},
	}
}

func jobsListCmd(build appFactory) *cobra.Command {
	var (
		status string
		take   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, build, func(app *bootstrap.App) error {
				items, total, _, err := app.JobsService.List(cmd.Context(), jobs.ListFilter{
					Status: jobs.Status(strings.ToUpper(strings.TrimSpace(status))),
					Take:   take,
				})
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tATTEMPTS\tDOCUMENT\tCREATED")
				for _, j := range items {
					doc := "-"
					if j.DocumentID != nil {
						doc = *j.DocumentID
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
						j.ID, j.Type, j.Status, j.Attempts, j.MaxAttempts, doc, j.CreatedAt.Format(time.RFC3339))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d of %d jobs\n", len(items), total)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status: QUEUED, PROCESSING, DONE or ERROR")
	cmd.Flags().IntVar(&take, "take", 20, "page size (max 100)")
	return cmd
}
