package cmd

import (
	"context"
	"fmt"

	summaryadapter "github.com/bnema/job-launcher/internal/adapters/render/summary"
	"github.com/bnema/job-launcher/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func writeSummaryOutput(cmd *cobra.Command, app *app, summary domain.SessionSummary) error {
	rendered, err := app.summaryRenderer(summary, summaryadapter.RenderOptions{
		ShowStatusLines: app.log.IsLevelEnabled(logrus.DebugLevel),
	})
	if err != nil {
		return fmt.Errorf("render session summary: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func writeReport(ctx context.Context, app *app, path string, summary domain.SessionSummary) error {
	writer, err := app.reportWriter(path)
	if err != nil {
		return fmt.Errorf("open session report: %w", err)
	}
	if err := writer.Write(ctx, summary); err != nil {
		return fmt.Errorf("write session report: %w", err)
	}

	app.log.WithField("path", writer.Path()).Info("session report written")
	return nil
}
