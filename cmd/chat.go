package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/KaramelBytes/ineqdash/internal/ai"
	"github.com/KaramelBytes/ineqdash/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	chatDataset string
	chatModel   string
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask the assistant about inequality data",
	Long: `chat sends a single message when one is given, otherwise it reads questions
from stdin until EOF or "exit". With --dataset the dataset report is shared
with the assistant as context.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := chatOptions()
		if chatModel != "" {
			opts.Model = chatModel
		}
		if chatDataset != "" {
			e, err := loadEntry(chatDataset)
			if err != nil {
				return err
			}
			opts.Context = analysis.Analyze(e.Table, analysis.DefaultOptions()).Markdown()
		}
		conv := ai.NewConversation(chatRuntime(), opts)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if len(args) > 0 {
			return ask(ctx, conv, strings.Join(args, " "))
		}
		fmt.Println(ai.Greeting)
		sc := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !sc.Scan() {
				fmt.Println()
				return sc.Err()
			}
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				return nil
			}
			if err := ask(ctx, conv, line); err != nil {
				fmt.Fprintln(os.Stderr, "✗ Error:", err)
			}
		}
	},
}

func ask(ctx context.Context, conv *ai.Conversation, prompt string) error {
	resp, err := conv.Ask(ctx, prompt)
	if err != nil {
		return err
	}
	fmt.Println(resp.Content)
	if debug {
		fmt.Fprintf(os.Stderr, "[debug] model %s, %d prompt + %d completion tokens, %d attempts, %.2fs\n",
			resp.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Attempts, resp.Seconds)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatDataset, "dataset", "", "share this dataset's report with the assistant")
	chatCmd.Flags().StringVar(&chatModel, "model", "", "chat model (default: chat_model from config)")
}
