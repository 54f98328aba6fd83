package admin

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reglens/reglens/internal/service"
)

// IngestCmd returns the ingest command: a one-shot pipeline run that
// pulls the corpus, chunks and embeds it, and exits.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run the ingestion pipeline once",
		Long:  "Pull documents from the configured corpus source, chunk and embed them, and store the results",
		RunE:  runIngest,
	}

	cmd.Flags().Int("max-documents", 0, "Cap on documents to ingest (0 = no cap)")
	cmd.Flags().Bool("reprocess", false, "Re-ingest documents that are already stored")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(d.cfg.DatabaseURL, d.logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	maxDocs, _ := cmd.Flags().GetInt("max-documents")
	reprocess, _ := cmd.Flags().GetBool("reprocess")

	res, err := d.pipeline.Run(ctx, service.IngestionOptions{
		MaxDocuments:        maxDocs,
		ProcessingBatchSize: d.cfg.ProcessingBatchSize,
		StorageBatchSize:    d.cfg.StorageBatchSize,
		SkipExisting:        !reprocess,
		EmbeddingsEnabled:   d.cfg.EmbeddingsEnabled,
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	d.logger.Info("ingestion complete",
		zap.Int("processed", res.Processed),
		zap.Int("skipped", res.Skipped),
		zap.Int("chunks", res.ChunksCreated),
		zap.Int("embeddings", res.EmbeddingsGenerated),
	)
	for _, e := range res.Errors {
		d.logger.Warn("document error", zap.String("error", e))
	}
	return nil
}
