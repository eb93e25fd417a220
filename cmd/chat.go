package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tewou-sn/tewou/internal/app"
	"github.com/tewou-sn/tewou/internal/rag"
	"github.com/tewou-sn/tewou/internal/session"
)

var (
	chatSoil     string
	chatLocation string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Démarrer une conversation interactive",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSoil, "soil", "", "type de sol de l'exploitation")
	chatCmd.Flags().StringVar(&chatLocation, "location", "", "localisation de l'exploitation")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sessionID := session.NewSessionID()
	var messages []session.Message

	fmt.Printf("%s\n", rag.AssistantName)
	fmt.Println("Posez votre question, ou tapez /quit pour quitter.")
	fmt.Printf("Session : %s\n\n", sessionID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("Vous > ")

		if !scanner.Scan() {
			// EOF (Ctrl+D)
			fmt.Println("\nAu revoir !")
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" || input == "/exit" {
			fmt.Println("Au revoir !")
			break
		}

		fmt.Print("Tèwou > ")
		answer, err := streamAnswer(ctx, a, rag.Request{
			Question: input,
			SoilType: chatSoil,
			Location: chatLocation,
			History:  exchanges(messages),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Erreur : %v\n", err)
			continue
		}

		messages = append(messages,
			session.Message{Role: session.RoleUser, Content: input},
			session.Message{Role: session.RoleAssistant, Content: answer},
		)
		if a.History != nil {
			if err := a.History.Save(ctx, sessionID, messages, "", ""); err != nil {
				a.Logger.Warn("saving chat history", "session_id", sessionID, "error", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// streamAnswer runs one question through the pipeline, printing status
// lines to stderr and the streamed answer to stdout. It returns the
// complete answer text.
func streamAnswer(ctx context.Context, a *app.App, req rag.Request) (string, error) {
	stream := a.Pipeline.Query(ctx, req)

	var answer strings.Builder
	for ev := range stream.Events() {
		switch ev.Type {
		case rag.EventStatus:
			fmt.Fprintln(os.Stderr, ev.Content)
		case rag.EventChunk:
			fmt.Print(ev.Content)
			answer.WriteString(ev.Content)
		}
	}
	fmt.Println()

	return answer.String(), stream.Err()
}

// exchanges pairs stored messages into completed turns. An unanswered
// trailing user message is dropped.
func exchanges(messages []session.Message) []rag.Exchange {
	var out []rag.Exchange
	for i := 0; i+1 < len(messages); i++ {
		if messages[i].Role == session.RoleUser && messages[i+1].Role == session.RoleAssistant {
			out = append(out, rag.Exchange{
				User:      messages[i].Content,
				Assistant: messages[i+1].Content,
			})
			i++
		}
	}
	return out
}
