package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/finsight-ai/ragengine/pkg/agent"
	"github.com/finsight-ai/ragengine/pkg/config"
	"github.com/finsight-ai/ragengine/pkg/embedding"
	"github.com/finsight-ai/ragengine/pkg/llm"
	"github.com/finsight-ai/ragengine/pkg/memory"
	"github.com/finsight-ai/ragengine/pkg/models"
	"github.com/finsight-ai/ragengine/pkg/query"
	"github.com/finsight-ai/ragengine/pkg/retrieval"
	"github.com/finsight-ai/ragengine/pkg/vector"
)

var (
	interactive = flag.Bool("interactive", false, "Run in interactive chat mode")
	question    = flag.String("question", "", "Single question to answer (non-interactive mode)")
	userID      = flag.String("user", "local", "User ID scoping retrieval")
	sessionID   = flag.String("session", "", "Session ID (defaults to a timestamp)")
	debug       = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}

	session := *sessionID
	if session == "" {
		session = fmt.Sprintf("cli-%d", time.Now().Unix())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("\nShutting down...")
		cancel()
	}()

	orch, cleanup, err := buildOrchestrator(cfg)
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	if *interactive {
		runInteractive(ctx, orch, *userID, session)
		return
	}

	q := strings.TrimSpace(*question)
	if q == "" {
		fmt.Fprintln(os.Stderr, "provide -question or use -interactive")
		os.Exit(2)
	}
	answer(ctx, orch, models.Query{Text: q, UserID: *userID, SessionID: session})
}

// buildOrchestrator wires the full engine: Ollama chat and embedding
// clients, the Qdrant-backed chunk and conversation-memory collections
// and the three-stage workflow.
func buildOrchestrator(cfg config.Config) (*agent.Orchestrator, func(), error) {
	chatClient, err := llm.NewOllamaClient(cfg.OllamaURL, cfg.ChatModel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create chat client: %w", err)
	}

	embedder, err := embedding.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbeddingModel, cfg.EmbeddingDims)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	cached := embedding.NewCachedEmbedder(embedder)

	chunks, err := vector.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, config.DocumentChunksCollection)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	memories, err := vector.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, config.ConversationMemoryCollection)
	if err != nil {
		chunks.Close()
		return nil, nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	if err := memories.EnsureCollection(context.Background(), cached.Dimensions()); err != nil {
		chunks.Close()
		memories.Close()
		return nil, nil, fmt.Errorf("failed to ensure memory collection: %w", err)
	}

	manager := memory.NewManager(memory.NewInMemoryRepository(), memories, cached, chatClient)

	orch := agent.New(agent.Deps{
		Processor:  query.NewProcessor(chatClient, cached),
		Decomposer: query.NewDecomposer(chatClient),
		Engine:     retrieval.NewEngine(chunks, cached, cfg.HybridAlpha),
		Embedder:   cached,
		Memory:     manager,
		LLM:        chatClient,
	})

	cleanup := func() {
		orch.Close()
		chunks.Close()
		memories.Close()
		chatClient.Close()
	}
	return orch, cleanup, nil
}

func runInteractive(ctx context.Context, orch *agent.Orchestrator, userID, sessionID string) {
	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()

	fmt.Println(boldGreen("📈 Financial Report Assistant"))
	fmt.Println("Ask about company financials, e.g. \"What was Apple's revenue in 2023?\"")
	fmt.Println("Type 'exit' or press Ctrl+C to quit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for ctx.Err() == nil {
		fmt.Print(boldGreen("You: "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			break
		}
		if input == "" {
			continue
		}

		fmt.Print(boldCyan("Assistant: "))
		answer(ctx, orch, models.Query{Text: input, UserID: userID, SessionID: sessionID})
		fmt.Println()
	}
}

func answer(ctx context.Context, orch *agent.Orchestrator, q models.Query) {
	state, err := orch.Run(ctx, q, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}

	fmt.Println(state.Response.Text)

	if n := len(state.Response.Charts); n > 0 {
		fmt.Printf("\n(%d chart configuration(s) generated)\n", n)
	}
	if len(state.Response.Sources) > 0 {
		dim := color.New(color.Faint).SprintFunc()
		fmt.Println(dim("\nSources:"))
		fmt.Println(dim(agent.FormatSources(state.Response.Sources)))
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
