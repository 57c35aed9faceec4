package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	splitFile     string
	splitSplitter string
	splitSize     int
	splitOverlap  int
	splitShow     int
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split a text or PDF file into chunks and show them",
	RunE: func(cmd *cobra.Command, args []string) error {
		if splitFile == "" {
			return fmt.Errorf("--file is required")
		}
		splitter := cfg.RAG.Splitter
		if cmd.Flags().Changed("splitter") {
			splitter = splitSplitter
		}
		size, overlap := cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap
		if cmd.Flags().Changed("chunk-size") {
			size = splitSize
		}
		if cmd.Flags().Changed("overlap") {
			overlap = splitOverlap
		}

		chunks, err := loadChunks(splitFile, splitter, size, overlap)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Total chunks: %d (splitter=%s size=%d overlap=%d)\n", len(chunks), splitter, size, overlap)
		show := min(max(splitShow, 1), len(chunks))
		for i := range show {
			fmt.Fprintf(out, "\n--- chunk %d (%d chars) ---\n%s\n", i, len([]rune(chunks[i].PageContent)), chunks[i].PageContent)
		}
		return nil
	},
}

func init() {
	splitCmd.Flags().StringVar(&splitFile, "file", "", "Text or PDF file to split")
	splitCmd.Flags().StringVar(&splitSplitter, "splitter", "recursive", "Splitter: fixed or recursive")
	splitCmd.Flags().IntVar(&splitSize, "chunk-size", 800, "Chunk size in characters")
	splitCmd.Flags().IntVar(&splitOverlap, "overlap", 150, "Characters shared by neighbouring chunks")
	splitCmd.Flags().IntVar(&splitShow, "show", 1, "Number of chunks to print")
	rootCmd.AddCommand(splitCmd)
}
