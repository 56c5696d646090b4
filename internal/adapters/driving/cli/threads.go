package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Manage conversation threads in the context memory",
}

var threadsCreateCmd = &cobra.Command{
	Use:   "create [thread-id] [title...]",
	Short: "Create a new conversation thread",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runThreadsCreate,
}

var threadsAddCmd = &cobra.Command{
	Use:   "add [thread-id] [entry-id]",
	Short: "Append a memory entry to a thread",
	Args:  cobra.ExactArgs(2),
	RunE:  runThreadsAdd,
}

var threadsShowCmd = &cobra.Command{
	Use:   "show [thread-id]",
	Short: "Show a thread and its member entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runThreadsShow,
}

func init() {
	threadsCmd.AddCommand(threadsCreateCmd)
	threadsCmd.AddCommand(threadsAddCmd)
	threadsCmd.AddCommand(threadsShowCmd)
	rootCmd.AddCommand(threadsCmd)
}

func runThreadsCreate(cmd *cobra.Command, args []string) error {
	if err := setupServices(false); err != nil {
		return err
	}

	threadID := args[0]
	title := strings.Join(args[1:], " ")

	if err := memoryStore.CreateThread(cmd.Context(), threadID, title); err != nil {
		return fmt.Errorf("creating thread: %w", err)
	}
	cmd.Printf("Created thread %s\n", threadID)
	return nil
}

func runThreadsAdd(cmd *cobra.Command, args []string) error {
	if err := setupServices(false); err != nil {
		return err
	}

	entryID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("entry id must be a number: %q", args[1])
	}

	if err := memoryStore.AddToThread(cmd.Context(), args[0], entryID); err != nil {
		return fmt.Errorf("adding to thread: %w", err)
	}
	cmd.Printf("Added entry %d to thread %s\n", entryID, args[0])
	return nil
}

func runThreadsShow(cmd *cobra.Command, args []string) error {
	if err := setupServices(false); err != nil {
		return err
	}

	thread, err := memoryStore.GetThread(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("reading thread: %w", err)
	}

	cmd.Printf("Thread:  %s\n", thread.ThreadID)
	if thread.Title != "" {
		cmd.Printf("Title:   %s\n", thread.Title)
	}
	cmd.Printf("Created: %s\n", thread.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("Updated: %s\n", thread.LastUpdated.Format("2006-01-02 15:04:05"))
	if len(thread.ContextIDs) == 0 {
		cmd.Println("No entries")
		return nil
	}
	cmd.Printf("Entries: %v\n", thread.ContextIDs)
	return nil
}
