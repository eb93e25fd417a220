package cmd

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tewou-sn/tewou/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Gérer l'historique des conversations",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lister les conversations enregistrées",
	RunE:  runSessionsList,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Supprimer une conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Supprimer toutes les conversations",
	RunE:  runSessionsClear,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.History == nil {
		return errors.New("aucun backend d'historique disponible")
	}

	chats, err := a.History.LoadAll(ctx, "")
	if err != nil {
		return fmt.Errorf("loading sessions: %w", err)
	}

	if len(chats) == 0 {
		fmt.Println("Aucune conversation enregistrée.")
		return nil
	}

	type entry struct {
		id   string
		chat session.Chat
	}
	entries := make([]entry, 0, len(chats))
	for id, chat := range chats {
		entries = append(entries, entry{id: id, chat: chat})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].chat.UpdatedAt.After(entries[j].chat.UpdatedAt)
	})

	for _, e := range entries {
		fmt.Printf("%s  %-30s  %d messages  %s\n",
			e.id, e.chat.Title, len(e.chat.Messages), formatTime(e.chat.UpdatedAt))
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.History == nil {
		return errors.New("aucun backend d'historique disponible")
	}

	sessionID := args[0]
	if err := a.History.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return fmt.Errorf("conversation introuvable : %s", sessionID)
		}
		return fmt.Errorf("deleting session: %w", err)
	}

	fmt.Printf("Conversation %s supprimée.\n", sessionID)
	return nil
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.History == nil {
		return errors.New("aucun backend d'historique disponible")
	}

	deleted, err := a.History.DeleteAll(ctx, "")
	if err != nil {
		return fmt.Errorf("clearing sessions: %w", err)
	}

	if !deleted {
		fmt.Println("Aucune conversation à supprimer.")
		return nil
	}
	fmt.Println("Toutes les conversations ont été supprimées.")
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
