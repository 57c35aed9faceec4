package cmd

import (
	"fmt"
	"strings"

	"github.com/kayz/chainkit/internal/llm"
	"github.com/kayz/chainkit/internal/logger"
	"github.com/kayz/chainkit/internal/prompt"
	"github.com/kayz/chainkit/internal/rag"
	"github.com/kayz/chainkit/internal/schema"
	"github.com/kayz/chainkit/internal/structured"
	"github.com/spf13/cobra"
)

var (
	ragFile     string
	ragSplitter string
	ragSize     int
	ragOverlap  int

	ragK      int
	ragStore  string
	ragSchema string
)

var ragCmd = &cobra.Command{
	Use:   "rag",
	Short: "Answer a question from a document",
}

var ragNaiveCmd = &cobra.Command{
	Use:   "naive <query>",
	Short: "Retrieve the single chunk sharing the most words with the query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		chunks, _, err := ragChunks(cmd, 800, 100)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Chunks total: %d\n", len(chunks))

		best, _ := rag.BestMatch(chunks, query)
		if best.Score == 0 {
			logger.Warn("[RAG] No chunk shares a word with the query; falling back to chunk 0")
		}
		fmt.Fprintf(out, "\n=== RETRIEVED CHUNK (index %d, score %d) ===\n%s\n", best.Index, best.Score, best.Document.PageContent)

		p, done, err := openProvider(cmd)
		if err != nil {
			return err
		}
		defer done()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		text, err := prompt.MustBuiltin("context_qa").Format(map[string]any{
			"context": best.Document.PageContent,
			"query":   query,
		})
		if err != nil {
			return err
		}
		answer, err := llm.Invoke(ctx, p, text)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n=== FINAL ANSWER ===\n%s\n", strings.TrimSpace(answer))
		return nil
	},
}

var ragSemanticCmd = &cobra.Command{
	Use:   "semantic <query>",
	Short: "Embed the chunks, retrieve the top k by similarity and answer from them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		chunks, split, err := ragChunks(cmd, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
		if err != nil {
			return err
		}

		var answerSchema *schema.Schema
		if ragSchema != "" {
			if answerSchema, err = schema.Load(ragSchema); err != nil {
				return err
			}
		}

		embedder, err := openEmbedder()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		k := cfg.RAG.TopK
		if cmd.Flags().Changed("k") {
			k = ragK
		}
		if k < 1 {
			return fmt.Errorf("--k must be at least 1")
		}
		store := cfg.RAG.Store
		if cmd.Flags().Changed("store") {
			store = ragStore
		}

		opts := rag.IndexOptions{Store: store}
		if store == "persistent" {
			opts.Dir = cfg.RAG.PersistDir
			opts.Collection = rag.CollectionName(rag.JoinContext(chunks), split.splitter,
				split.size, split.overlap, cfg.Embedding.Model)
		}
		index, err := rag.OpenIndex(opts, embedder)
		if err != nil {
			return err
		}
		if index.Count() > 0 {
			logger.Info("[RAG] Reusing %d indexed chunks from %s", index.Count(), opts.Dir)
		} else if err := index.Add(ctx, chunks); err != nil {
			return err
		}

		top, err := index.Search(ctx, query, k)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "=== RELEVANT CHUNKS ===")
		for i, c := range top {
			fmt.Fprintf(out, "\nChunk %d (similarity %.3f):\n%s\n", i+1, c.Score, c.PageContent)
		}
		joined := rag.JoinContext(top)

		p, done, err := openProvider(cmd)
		if err != nil {
			return err
		}
		defer done()

		fmt.Fprintln(out, "\n=== FINAL ANSWER ===")
		values := map[string]any{"context": joined, "query": query}
		if answerSchema == nil {
			text, err := prompt.MustBuiltin("context_qa").Format(values)
			if err != nil {
				return err
			}
			answer, err := llm.Invoke(ctx, p, text)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, strings.TrimSpace(answer))
			return nil
		}

		text, err := structured.Render(answerSchema, prompt.MustBuiltin("context_qa_json"), values)
		if err != nil {
			return err
		}
		res, err := (&structured.Generator{Provider: p, Schema: answerSchema}).Generate(ctx, text)
		if err != nil {
			printFailure(out, err)
			return err
		}
		data, err := res.Output.JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	},
}

type splitParams struct {
	splitter      string
	size, overlap int
}

// ragChunks loads --file and splits it, taking flag values over the
// command's defaults.
func ragChunks(cmd *cobra.Command, size, overlap int) ([]rag.Document, splitParams, error) {
	if ragFile == "" {
		return nil, splitParams{}, fmt.Errorf("--file is required")
	}
	p := splitParams{splitter: cfg.RAG.Splitter, size: size, overlap: overlap}
	flags := cmd.Flags()
	if flags.Changed("splitter") {
		p.splitter = ragSplitter
	}
	if flags.Changed("chunk-size") {
		p.size = ragSize
	}
	if flags.Changed("overlap") {
		p.overlap = ragOverlap
	}
	chunks, err := loadChunks(ragFile, p.splitter, p.size, p.overlap)
	return chunks, p, err
}

func init() {
	for _, c := range []*cobra.Command{ragNaiveCmd, ragSemanticCmd} {
		c.Flags().StringVar(&ragFile, "file", "", "Text or PDF file to answer from")
		c.Flags().StringVar(&ragSplitter, "splitter", "recursive", "Splitter: fixed or recursive")
		c.Flags().IntVar(&ragSize, "chunk-size", 800, "Chunk size in characters")
	}
	ragNaiveCmd.Flags().IntVar(&ragOverlap, "overlap", 100, "Characters shared by neighbouring chunks")
	ragSemanticCmd.Flags().IntVar(&ragOverlap, "overlap", 150, "Characters shared by neighbouring chunks")
	ragSemanticCmd.Flags().IntVar(&ragK, "k", 3, "Number of chunks to retrieve")
	ragSemanticCmd.Flags().StringVar(&ragStore, "store", "memory", "Vector store: memory or persistent")
	ragSemanticCmd.Flags().StringVar(&ragSchema, "schema", "", "Answer as JSON matching this schema (e.g. hpa_diagnosis)")

	ragCmd.AddCommand(ragNaiveCmd, ragSemanticCmd)
	rootCmd.AddCommand(ragCmd)
}
