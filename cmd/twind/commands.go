package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/profile"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/session"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/storage"
)

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage candidate profiles",
}

var profileImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a candidate profile from a JSON file",
	Long: `Import a candidate profile from a JSON file.

The file holds the profile fields directly (basic_info, work_experience, ...):
  twind profile import ./alice.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		var p profile.Profile
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("parsing profile: %w", err)
		}
		if p.BasicInfo.Name == "" {
			return fmt.Errorf("profile has no basic_info.name")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/api/users/", map[string]any{"profile_data": p})
		if err != nil {
			return err
		}
		var cand profile.Candidate
		if err := decodeJSON(resp, &cand); err != nil {
			return err
		}

		printSuccess("Imported %s as %s", cand.Profile.BasicInfo.Name, cand.ID)
		return nil
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update <id> <file>",
	Short: "Replace a candidate profile from a JSON file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		var p profile.Profile
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("parsing profile: %w", err)
		}
		if p.BasicInfo.Name == "" {
			return fmt.Errorf("profile has no basic_info.name")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.put(cmd.Context(), "/api/users/"+args[0], map[string]any{"profile_data": p})
		if err != nil {
			return err
		}
		var cand profile.Candidate
		if err := decodeJSON(resp, &cand); err != nil {
			return err
		}

		printSuccess("Updated %s (%s)", cand.Profile.BasicInfo.Name, cand.ID)
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/users/")
		if err != nil {
			return err
		}
		var result struct {
			Users []profile.Summary `json:"users"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Users) == 0 {
			fmt.Println("no candidates stored")
			return nil
		}
		for _, u := range result.Users {
			fmt.Printf("  %s  %s\n", colorize(colorBold, u.ID), u.Name)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a candidate profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/users/"+args[0])
		if err != nil {
			return err
		}
		var cand json.RawMessage
		if err := decodeJSON(resp, &cand); err != nil {
			return err
		}

		var pretty map[string]any
		if err := json.Unmarshal(cand, &pretty); err != nil {
			return err
		}
		out, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a candidate profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/api/users/"+args[0])
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted candidate %s", args[0])
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileImportCmd)
	profileCmd.AddCommand(profileUpdateCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileDeleteCmd)
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <profile-id> <question>",
	Short: "Ask a candidate's twin an interview question",
	Long: `Ask a candidate's twin an interview question.

Examples:
  twind ask 4f9f... "Tell me about your biggest project"
  twind ask 4f9f... --session 2ca1... "What was the hardest part?"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/api/interview/chat/"+args[0], map[string]string{
			"message":    args[1],
			"session_id": sessionID,
		})
		if err != nil {
			return err
		}
		var turn struct {
			Response  string    `json:"response"`
			SessionID string    `json:"session_id"`
			Timestamp time.Time `json:"timestamp"`
		}
		if err := decodeJSON(resp, &turn); err != nil {
			return err
		}

		fmt.Println(turn.Response)
		printStatus("Session", "%s", turn.SessionID)
		return nil
	},
}

func init() {
	askCmd.Flags().String("session", "", "session id to continue an existing conversation")
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Show the message history of an interview session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/interview/session/"+args[0]+"/history")
		if err != nil {
			return err
		}
		var result struct {
			History []session.Message `json:"history"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		for _, m := range result.History {
			label := colorize(colorCyan, string(m.Role))
			if m.Role == session.RoleCandidate {
				label = colorize(colorGreen, string(m.Role))
			}
			fmt.Printf("[%s] %s\n", label, m.Content)
		}
		return nil
	},
}

// --- audit ---

var auditCmd = &cobra.Command{
	Use:   "audit <session-id>",
	Short: "Show the audited turns of an interview session",
	Long: `Show the audited turns of an interview session.

Unlike 'history', which reads the live in-memory session, this reads the
durable turn log, so it also works after the session has been evicted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/admin/sessions/"+args[0]+"/turns")
		if err != nil {
			return err
		}
		var result struct {
			Turns []storage.Turn `json:"turns"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Turns) == 0 {
			fmt.Println("no audited turns for this session")
			return nil
		}
		for _, turn := range result.Turns {
			fmt.Printf("[%s] %s\n", colorize(colorCyan, "interviewer"), turn.Question)
			label := colorize(colorGreen, "candidate")
			if turn.Fallback {
				label = colorize(colorYellow, "candidate (fallback)")
			}
			fmt.Printf("[%s] %s\n", label, turn.Answer)
			printStatus("Score", "%.3f", turn.Score)
		}
		return nil
	},
}

// --- reindex ---

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-embed all stored candidate profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Reindexing profiles...")
		resp, err := client.post(cmd.Context(), "/api/admin/reindex", nil)
		if err != nil {
			return err
		}
		var result struct {
			Reindexed int `json:"reindexed"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Reindexed %d profiles", result.Reindexed)
		return nil
	},
}
