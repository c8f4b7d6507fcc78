// indexdocs reads topic markdown files from a directory, splits them into
// heading-based chunks, and upserts the embedded chunks into the Pinecone
// index the revision service falls back to for topics without curated
// subtopics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"tutor/config"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/protobuf/types/known/structpb"
)

const docsNamespace = "tutor-docs"

type DocumentChunk struct {
	ID         string
	Topic      string
	ChunkIndex int
	Heading    string
	Content    string
}

func main() {
	docsDir := flag.String("dir", "docs", "directory of topic markdown files")
	flag.Parse()

	log.Printf("[INFO] Starting document indexing process")

	cfg := config.Load()

	if cfg.PineconeAPIKey == "" {
		log.Fatal("[ERROR] PINECONE_API_KEY environment variable is required")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Fatal("[ERROR] OPENAI_API_KEY environment variable is required")
	}

	llm, err := openai.New(
		openai.WithModel("gpt-4o-mini"),
		openai.WithToken(cfg.OpenAIAPIKey),
	)
	if err != nil {
		log.Fatalf("[ERROR] Failed to create OpenAI client: %v", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		log.Fatalf("[ERROR] Failed to create embedder: %v", err)
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: cfg.PineconeAPIKey,
	})
	if err != nil {
		log.Fatalf("[ERROR] Failed to create Pinecone client: %v", err)
	}

	if err := ensurePineconeIndex(pc, cfg.PineconeIndexName); err != nil {
		log.Fatalf("[ERROR] Failed to ensure Pinecone index: %v", err)
	}

	entries, err := os.ReadDir(*docsDir)
	if err != nil {
		log.Fatalf("[ERROR] Failed to read docs directory %s: %v", *docsDir, err)
	}

	processed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		topic := strings.TrimSuffix(entry.Name(), ".md")
		path := filepath.Join(*docsDir, entry.Name())

		log.Printf("[INFO] Processing topic file %s", path)
		if err := processTopicFile(pc, cfg.PineconeIndexName, topic, path, embedder); err != nil {
			log.Printf("[ERROR] Failed to process %s: %v", path, err)
			continue
		}
		processed++
	}

	log.Printf("[INFO] Document indexing completed, %d topic files processed", processed)
}

func ensurePineconeIndex(pc *pinecone.Client, indexName string) error {
	ctx := context.Background()

	indexes, err := pc.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}

	for _, idx := range indexes {
		if idx.Name == indexName {
			log.Printf("[INFO] Index %s already exists", indexName)
			return nil
		}
	}

	log.Printf("[INFO] Creating Pinecone index: %s", indexName)
	dimension := int32(1536) // OpenAI ada-002 embedding dimension
	deletionProtection := pinecone.DeletionProtectionDisabled
	metric := pinecone.Cosine

	_, err = pc.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:               indexName,
		Dimension:          &dimension,
		Metric:             &metric,
		Cloud:              pinecone.Aws,
		Region:             "us-east-1",
		DeletionProtection: &deletionProtection,
		Tags:               &pinecone.IndexTags{"environment": "development", "project": "tutor-indexing"},
	})
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	for {
		idx, err := pc.DescribeIndex(ctx, indexName)
		if err != nil {
			return fmt.Errorf("failed to describe index: %w", err)
		}
		if idx.Status.Ready {
			log.Printf("[INFO] Index %s is ready", indexName)
			break
		}
		log.Printf("[INFO] Waiting for index %s to be ready...", indexName)
		time.Sleep(10 * time.Second)
	}

	return nil
}

func processTopicFile(pc *pinecone.Client, indexName, topic, path string, embedder embeddings.Embedder) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	chunks := chunkMarkdownByHeadings(topic, string(raw))
	if len(chunks) == 0 {
		log.Printf("[INFO] No chunks created for topic %s", topic)
		return nil
	}
	log.Printf("[INFO] Created %d chunks for topic %s", len(chunks), topic)

	if err := deleteExistingVectors(pc, indexName, topic); err != nil {
		return fmt.Errorf("failed to delete existing vectors: %w", err)
	}

	vectors, err := createVectors(chunks, embedder)
	if err != nil {
		return fmt.Errorf("failed to create vectors: %w", err)
	}

	return upsertVectors(pc, indexName, vectors)
}

func chunkMarkdownByHeadings(topic, content string) []DocumentChunk {
	lines := strings.Split(content, "\n")

	var chunks []DocumentChunk
	var currentChunk strings.Builder
	currentHeading := topic

	headingRegex := regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

	flush := func() {
		chunkContent := strings.TrimSpace(currentChunk.String())
		if chunkContent != "" {
			chunks = append(chunks, DocumentChunk{
				ID:         fmt.Sprintf("topic_%s_chunk_%d", sanitizeID(topic), len(chunks)),
				Topic:      topic,
				ChunkIndex: len(chunks),
				Heading:    currentHeading,
				Content:    chunkContent,
			})
		}
		currentChunk.Reset()
	}

	for _, line := range lines {
		if match := headingRegex.FindStringSubmatch(line); match != nil {
			flush()
			currentHeading = match[2]
			continue
		}
		currentChunk.WriteString(line + "\n")
	}
	flush()

	return chunks
}

func sanitizeID(topic string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(topic), " ", "_"))
}

func deleteExistingVectors(pc *pinecone.Client, indexName, topic string) error {
	ctx := context.Background()

	idxConn, err := indexConnection(ctx, pc, indexName)
	if err != nil {
		return err
	}

	prefix := fmt.Sprintf("topic_%s_", sanitizeID(topic))
	limit := uint32(100)

	listResp, err := idxConn.ListVectors(ctx, &pinecone.ListVectorsRequest{
		Prefix: &prefix,
		Limit:  &limit,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Namespace not found") {
			return nil
		}
		return fmt.Errorf("failed to list vectors: %w", err)
	}

	for listResp.NextPaginationToken != nil || len(listResp.VectorIds) > 0 {
		vectorIds := make([]string, 0, len(listResp.VectorIds))
		for _, vectorId := range listResp.VectorIds {
			if vectorId != nil {
				vectorIds = append(vectorIds, *vectorId)
			}
		}

		if len(vectorIds) > 0 {
			if err := idxConn.DeleteVectorsById(ctx, vectorIds); err != nil {
				return fmt.Errorf("failed to delete vector batch: %w", err)
			}
			log.Printf("[INFO] Deleted %d stale vectors for topic %s", len(vectorIds), topic)
		}

		if listResp.NextPaginationToken == nil {
			break
		}
		listResp, err = idxConn.ListVectors(ctx, &pinecone.ListVectorsRequest{
			Prefix:          &prefix,
			Limit:           &limit,
			PaginationToken: listResp.NextPaginationToken,
		})
		if err != nil {
			return fmt.Errorf("failed to list next batch of vectors: %w", err)
		}
	}

	return nil
}

func createVectors(chunks []DocumentChunk, embedder embeddings.Embedder) ([]*pinecone.Vector, error) {
	ctx := context.Background()

	var texts []string
	for _, chunk := range chunks {
		texts = append(texts, fmt.Sprintf("Heading: %s\n\nContent: %s", chunk.Heading, chunk.Content))
	}

	embedded, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	var vectors []*pinecone.Vector
	for i, chunk := range chunks {
		metadata, err := structpb.NewStruct(map[string]any{
			"topic":       chunk.Topic,
			"chunk_index": chunk.ChunkIndex,
			"heading":     chunk.Heading,
			"content":     chunk.Content,
			"created_at":  time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create metadata struct for chunk %s: %w", chunk.ID, err)
		}

		vectors = append(vectors, &pinecone.Vector{
			Id:       chunk.ID,
			Values:   &embedded[i],
			Metadata: metadata,
		})
	}

	return vectors, nil
}

func upsertVectors(pc *pinecone.Client, indexName string, vectors []*pinecone.Vector) error {
	ctx := context.Background()

	idxConn, err := indexConnection(ctx, pc, indexName)
	if err != nil {
		return err
	}

	batchSize := 10
	for i := 0; i < len(vectors); i += batchSize {
		end := i + batchSize
		if end > len(vectors) {
			end = len(vectors)
		}

		count, err := idxConn.UpsertVectors(ctx, vectors[i:end])
		if err != nil {
			return fmt.Errorf("failed to upsert vector batch: %w", err)
		}
		log.Printf("[INFO] Successfully upserted %d vectors (batch %d)", count, i/batchSize+1)
	}

	return nil
}

func indexConnection(ctx context.Context, pc *pinecone.Client, indexName string) (*pinecone.IndexConnection, error) {
	idxDesc, err := pc.DescribeIndex(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index: %w", err)
	}

	idxConn, err := pc.Index(pinecone.NewIndexConnParams{
		Host:      idxDesc.Host,
		Namespace: docsNamespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection: %w", err)
	}

	return idxConn, nil
}
