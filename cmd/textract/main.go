// textract is the operator CLI: submit documents, poll job status, dump
// results and trigger reprocessing against the same local stores the
// daemon uses.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docuflow/textract-export/internal/common"
	"github.com/docuflow/textract-export/internal/repository"
	"github.com/docuflow/textract-export/internal/service"
	"github.com/docuflow/textract-export/internal/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "textract",
		Short:         "Submit documents for analysis and fetch tabular results",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(newSubmitCmd(), newStatusCmd(), newResultCmd(), newReprocessCmd(), newDownloadCmd())
	return root
}

// openService wires the document service against the configured stores.
func openService(ctx context.Context) (*service.Documents, func(), error) {
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	db, err := repository.OpenSQLite(cfg.Database.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.NewFSStore(cfg.Storage.RootDir, cfg.Storage.BaseURL, cfg.Storage.SigningSecret, slog.Default())
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	jobs := repository.NewSQLiteJobRepository(db, slog.Default())
	return service.NewDocuments(slog.Default(), store, jobs, cfg.Storage.PresignTTL),
		func() { _ = db.Close() }, nil
}

func newSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <file>",
		Short: "Upload a document for analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, cleanup, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res, err := docs.Upload(cmd.Context(), filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			if res.Duplicate {
				fmt.Printf("duplicate: already analysed as %s\n", res.ExistingAckID)
				return nil
			}
			fmt.Printf("ackId: %s\nstatus: %s\n", res.AckID, res.Status)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <ackId>",
		Short: "Show the processing status of a submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, cleanup, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			st, err := docs.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("file: %s\nstatus: %s\nhasResult: %t\n", st.FileName, st.Status, st.HasResult)
			if st.Error != "" {
				fmt.Printf("error: %s\n", st.Error)
			}
			return nil
		},
	}
}

func newResultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "result <ackId>",
		Short: "Print the extracted sheets of a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, cleanup, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := docs.Result(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, common.ErrNotReady) {
					fmt.Println("still processing; try again later")
					return nil
				}
				return err
			}
			for _, sheet := range res.Sheets {
				fmt.Printf("== %s (%d rows)\n", sheet.Name, len(sheet.Rows))
				for _, row := range sheet.Rows {
					fmt.Printf("   %v\n", row)
				}
			}
			fmt.Printf("download: %s\n", res.DownloadURL)
			return nil
		},
	}
}

func newReprocessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess <ackId>",
		Short: "Re-run analysis for an existing submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, cleanup, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			st, err := docs.Reprocess(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("status: %s\n", st.Status)
			return nil
		},
	}
}

func newDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <ackId>",
		Short: "Print a presigned URL for the result workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, cleanup, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			url, err := docs.DownloadURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(url)
			return nil
		},
	}
}
