package docindex

import (
	"context"
	"fmt"
	"log"

	"tutor/models"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Service retrieves study material chunks from the vector index. It backs
// topics that have no curated subtopics in the database.
type Service struct {
	client    *pinecone.Client
	embedder  embeddings.Embedder
	indexName string
}

func NewService(apiKey, openaiAPIKey, indexName string) (*Service, error) {
	log.Printf("[INFO] Initializing document index service")

	pc, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}

	llm, err := openai.New(
		openai.WithModel("gpt-4o-mini"),
		openai.WithToken(openaiAPIKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	service := &Service{
		client:    pc,
		embedder:  embedder,
		indexName: indexName,
	}

	log.Printf("[INFO] Document index service initialized successfully")
	return service, nil
}

// QueryTopicChunks returns up to limit concept chunks for a topic, in match
// order. Chunk numbers are assigned sequentially so the result is directly
// usable as a session's concept list.
func (s *Service) QueryTopicChunks(topic string, limit int) ([]models.ConceptChunk, error) {
	log.Printf("[INFO] Querying document index for topic '%s' with limit %d", topic, limit)

	ctx := context.Background()

	idxDesc, err := s.client.DescribeIndex(ctx, s.indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index: %w", err)
	}

	idxConn, err := s.client.Index(pinecone.NewIndexConnParams{
		Host:      idxDesc.Host,
		Namespace: "tutor-docs",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection: %w", err)
	}

	queryEmbeddings, err := s.embedder.EmbedDocuments(ctx, []string{topic})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding for topic '%s': %w", topic, err)
	}

	result, err := idxConn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          queryEmbeddings[0],
		TopK:            uint32(limit),
		IncludeValues:   false,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors for topic '%s': %w", topic, err)
	}

	log.Printf("[INFO] Retrieved %d matches for topic '%s'", len(result.Matches), topic)

	var chunks []models.ConceptChunk
	for _, match := range result.Matches {
		if match.Vector.Metadata == nil {
			continue
		}
		metadata := match.Vector.Metadata.AsMap()

		content, ok := metadata["content"].(string)
		if !ok || content == "" {
			continue
		}

		title := topic
		if heading, ok := metadata["heading"].(string); ok && heading != "" {
			title = heading
		}

		chunks = append(chunks, models.ConceptChunk{
			Number:  len(chunks) + 1,
			Title:   title,
			Content: content,
		})
	}

	if len(chunks) == 0 {
		log.Printf("[WARN] No chunks found for topic '%s'", topic)
		return []models.ConceptChunk{}, nil
	}

	log.Printf("[INFO] Returning %d concept chunks for topic '%s'", len(chunks), topic)
	return chunks, nil
}
