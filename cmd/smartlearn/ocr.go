package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kalambet/smartlearn/internal/client"
	"github.com/kalambet/smartlearn/internal/imageprep"
	"github.com/kalambet/smartlearn/internal/session"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr",
	Short: "Turn photos of handwritten notes into text",
}

func ocrKey(r client.OCRRecord) string { return r.ID }

func ocrLine(r client.OCRRecord) string {
	return fmt.Sprintf("%s  %s  %-10s %s", shortID(r.ID), timestamp(r.CreatedAt), r.Mode, truncate(r.Text, 60))
}

// loadImage reads path and shrinks it for upload.
func loadImage(path string) (client.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return client.File{}, fmt.Errorf("reading %s: %w", path, err)
	}
	img, err := imageprep.Prepare(filepath.Base(path), data, imageprep.MaxDimension)
	if err != nil {
		return client.File{}, err
	}
	if img.Resized {
		printStep("Resized %s to fit %dpx", img.Name, imageprep.MaxDimension)
	}
	return client.File{Name: img.Name, Content: bytes.NewReader(img.Data)}, nil
}

var ocrUploadCmd = &cobra.Command{
	Use:   "upload <image>",
	Short: "Transcribe a handwritten page",
	Args:  cobra.ExactArgs(1),
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		f, err := loadImage(args[0])
		if err != nil {
			return err
		}

		hv := newHistoryView(cmd, a.api.OCRHistory, ocrKey, "Transcriptions", ocrLine)
		hv.mount(ctx)

		rec, err := a.api.UploadHandwriting(ctx, f, mode)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, rec.Text)
		hv.prepend(w, *rec)
		return nil
	}),
}

var ocrHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List past transcriptions",
	Args:  cobra.NoArgs,
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		recs, err := a.api.OCRHistory(ctx)
		if err != nil {
			return err
		}
		printRecent(cmd.OutOrStdout(), "Transcriptions", recs, 0, ocrLine)
		return nil
	}),
}

var ocrDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a transcription",
	Args:  cobra.ExactArgs(1),
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		hv := newHistoryView(cmd, a.api.OCRHistory, ocrKey, "Transcriptions", ocrLine)
		hv.mount(ctx)

		if err := a.api.DeleteOCR(ctx, args[0]); err != nil {
			return err
		}
		printSuccess("Deleted %s", args[0])
		hv.remove(cmd.OutOrStdout(), args[0])
		return nil
	}),
}

func init() {
	ocrCmd.AddCommand(ocrUploadCmd, ocrHistoryCmd, ocrDeleteCmd)
	ocrUploadCmd.Flags().String("mode", client.OCRDefault, "default, structured or clean")
	addHistoryFlag(ocrUploadCmd, ocrDeleteCmd)
}
