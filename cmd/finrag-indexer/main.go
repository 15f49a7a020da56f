package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/finsight-ai/ragengine/pkg/config"
	"github.com/finsight-ai/ragengine/pkg/embedding"
	"github.com/finsight-ai/ragengine/pkg/vector"
)

const upsertBatchSize = 100

var (
	contentDir = flag.String("content-dir", "./content", "Directory containing report text files")
	userID     = flag.String("user", "local", "User ID the chunks belong to")
	company    = flag.String("company", "", "Company the reports belong to (required)")
	year       = flag.Int("year", 0, "Fiscal year of the reports (required)")
	docType    = flag.String("doc-type", "10-K", "Document type (10-K, 10-Q, Annual Report, ...)")
	quarter    = flag.Int("quarter", 0, "Fiscal quarter for quarterly filings")
	chunkSize  = flag.Int("chunk-size", 400, "Chunk size in characters")
	overlap    = flag.Int("overlap", 50, "Chunk overlap in characters")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *company == "" || *year == 0 {
		fmt.Fprintln(os.Stderr, "both -company and -year are required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}

	ctx := context.Background()

	embedder, err := embedding.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbeddingModel, cfg.EmbeddingDims)
	if err != nil {
		fatal(fmt.Errorf("failed to create embedder: %w", err))
	}

	store, err := vector.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, config.DocumentChunksCollection)
	if err != nil {
		fatal(fmt.Errorf("failed to connect to Qdrant: %w", err))
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx, embedder.Dimensions()); err != nil {
		fatal(fmt.Errorf("failed to ensure collection: %w", err))
	}

	files, err := findContentFiles(*contentDir)
	if err != nil {
		fatal(fmt.Errorf("failed to find content files: %w", err))
	}
	if len(files) == 0 {
		fatal(fmt.Errorf("no .md or .txt files under %s", *contentDir))
	}

	fmt.Printf("Indexing %d files for %s %d (%s)\n", len(files), *company, *year, *docType)

	total, err := indexFiles(ctx, store, embedder, files)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Indexed %d chunks into %s\n", total, config.DocumentChunksCollection)
}

func indexFiles(ctx context.Context, store *vector.QdrantStore, embedder embedding.Embedder, files []string) (int, error) {
	var batch []vector.Point
	total := 0

	for i, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("skipping unreadable file")
			continue
		}

		rel, _ := filepath.Rel(*contentDir, path)
		documentID := uuid.NewString()
		chunks := chunkText(string(raw), *chunkSize, *overlap)
		log.Info().Str("file", rel).Int("chunks", len(chunks)).
			Msgf("processing file %d/%d", i+1, len(files))

		for idx, chunk := range chunks {
			vec, err := embedder.EmbedText(ctx, chunk)
			if err != nil {
				log.Warn().Err(err).Int("chunk", idx).Msg("embedding failed, skipping chunk")
				continue
			}

			batch = append(batch, vector.Point{
				ID:     uuid.NewString(),
				Vector: vec,
				Payload: map[string]any{
					"user_id":        *userID,
					"document_id":    documentID,
					"company":        strings.ToLower(*company),
					"fiscal_year":    *year,
					"document_type":  *docType,
					"fiscal_quarter": *quarter,
					"chunk_type":     classifyChunk(chunk),
					"has_table":      looksTabular(chunk),
					"chunk_index":    idx,
					"source":         rel,
					"content":        chunk,
				},
			})
			total++

			if len(batch) >= upsertBatchSize {
				if err := store.Upsert(ctx, batch); err != nil {
					return total, fmt.Errorf("failed to upsert batch: %w", err)
				}
				batch = batch[:0]
			}
		}
	}

	if len(batch) > 0 {
		if err := store.Upsert(ctx, batch); err != nil {
			return total, fmt.Errorf("failed to upsert batch: %w", err)
		}
	}
	return total, nil
}

func findContentFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".md", ".txt":
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// chunkText splits text into fixed-size chunks with overlap.
func chunkText(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap >= size {
		overlap = size / 2
	}

	var chunks []string
	for start := 0; start < len(text); start += size - overlap {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}

// classifyChunk gives a coarse chunk type so metadata filters on
// chunk_type have something to match.
func classifyChunk(chunk string) string {
	trimmed := strings.TrimSpace(chunk)
	if strings.HasPrefix(trimmed, "#") && !strings.Contains(trimmed, "\n") {
		return "heading"
	}
	if looksTabular(chunk) {
		return "table"
	}
	return "paragraph"
}

func looksTabular(chunk string) bool {
	return strings.Count(chunk, "|") >= 4 || strings.Count(chunk, "\t") >= 4
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
