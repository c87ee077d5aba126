package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cura-ai/cura/internal/core"
)

var chatCmd = &cobra.Command{
	Use:   "chat <diagnosis-id> <question>",
	Short: "Ask a follow-up question about a stored diagnosis",
	Long: `Ask a follow-up question against a stored diagnosis. The answer is
grounded in the specialist reports and final diagnosis of that run,
plus the most recent turns of the existing conversation. Both the
question and the answer are appended to the conversation.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runChatCmd,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChatCmd(cmd *cobra.Command, args []string) error {
	id := args[0]
	question := strings.Join(args[1:], " ")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	rec, err := a.store.LoadDiagnosis(cmd.Context(), id)
	if err != nil {
		return err
	}
	if rec == nil {
		return core.ErrNotFound("diagnosis", id)
	}

	history, err := a.store.LoadMessages(cmd.Context(), id)
	if err != nil {
		return err
	}

	diagCtx := a.chat.BuildContext(&rec.Result)
	answer := a.chat.Answer(cmd.Context(), diagCtx, history, question)

	now := time.Now()
	for _, msg := range []*core.ChatMessage{
		{ID: uuid.NewString(), DiagnosisID: id, Role: core.ChatRoleUser, Content: question, Timestamp: now},
		{ID: uuid.NewString(), DiagnosisID: id, Role: core.ChatRoleAssistant, Content: answer, Timestamp: now},
	} {
		if err := a.store.AppendMessage(cmd.Context(), msg); err != nil {
			return fmt.Errorf("appending chat turn: %w", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}
