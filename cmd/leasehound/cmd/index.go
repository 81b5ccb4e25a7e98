package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/medleyre/leasehound/internal/store"
)

// chunkRecord is one line of the JSONL input format.
type chunkRecord struct {
	ID         string            `json:"id"`
	Text       string            `json:"text"`
	DocumentID string            `json:"document_id"`
	Section    string            `json:"section"`
	TenantName string            `json:"tenant_name"`
	Metadata   map[string]string `json:"metadata"`
}

func newIndexCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "index <chunks.jsonl>",
		Short: "Index lease chunks from a JSONL file",
		Long: `Reads chunk records from a JSONL file and indexes them into the
lexical index, the vector index, and the chunk store.

Each line is a JSON object:
  {"id": "...", "text": "...", "document_id": "...", "tenant_name": "...", "section": "..."}

Missing ids are generated. The tenant_name field becomes filterable
metadata used by entity tracking and --tenant flags.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			engine, cleanup, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open chunks file: %w", err)
			}
			defer file.Close()

			var batch []*store.Chunk
			total := 0
			lineNo := 0

			scanner := bufio.NewScanner(file)
			scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
			for scanner.Scan() {
				lineNo++
				line := scanner.Bytes()
				if len(line) == 0 {
					continue
				}

				var rec chunkRecord
				if err := json.Unmarshal(line, &rec); err != nil {
					return fmt.Errorf("line %d: %w", lineNo, err)
				}
				if rec.Text == "" {
					return fmt.Errorf("line %d: text is required", lineNo)
				}

				batch = append(batch, recordToChunk(rec))
				if len(batch) >= batchSize {
					if err := engine.Index(cmd.Context(), batch); err != nil {
						return err
					}
					total += len(batch)
					batch = batch[:0]
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read chunks file: %w", err)
			}

			if len(batch) > 0 {
				if err := engine.Index(cmd.Context(), batch); err != nil {
					return err
				}
				total += len(batch)
			}

			fmt.Printf("Indexed %d chunks\n", total)
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 100, "Chunks per indexing batch")

	return cmd
}

func recordToChunk(rec chunkRecord) *store.Chunk {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := rec.Metadata
	if metadata == nil {
		metadata = make(map[string]string)
	}
	if rec.TenantName != "" {
		metadata[store.MetadataKeyTenant] = rec.TenantName
	}
	if rec.Section != "" {
		metadata[store.MetadataKeySection] = rec.Section
	}

	return &store.Chunk{
		ID:         id,
		Text:       rec.Text,
		DocumentID: rec.DocumentID,
		Section:    rec.Section,
		Metadata:   metadata,
	}
}
