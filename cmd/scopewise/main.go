package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/scopewise/scopewise/internal/api"
	"github.com/scopewise/scopewise/internal/config"
	"github.com/scopewise/scopewise/internal/model/scoping"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var apiURL string

	root := &cobra.Command{
		Use:           "scopewise",
		Short:         "Operational CLI for the project-scoping backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&apiURL, "api", "", "backend base URL (overrides SCOPEWISE_API_URL)")

	root.AddCommand(newHealthCmd(&apiURL))
	root.AddCommand(newSessionCmd(&apiURL))
	root.AddCommand(newAnswerCmd(&apiURL))
	root.AddCommand(newProgressCmd(&apiURL))
	root.AddCommand(newEventsCmd(&apiURL))
	root.AddCommand(newWatchCmd(&apiURL))
	return root
}

func loadClient(apiURL string) (*api.Client, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		_, _ = fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.Client.BaseURL = apiURL
	}
	return api.NewClient(cfg.Client), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func newHealthCmd(apiURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe backend liveness",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := loadClient(*apiURL)
			if err != nil {
				return err
			}
			health, err := client.HealthCheck(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "backend status: %s\n", health.Status)
			return nil
		},
	}
}

func newSessionCmd(apiURL *string) *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Manage scoping sessions"}

	var userID, projectName, description string

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new scoping session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := loadClient(*apiURL)
			if err != nil {
				return err
			}
			created, err := client.CreateSession(cmd.Context(), scoping.CreateSessionRequest{
				UserID:      userID,
				ProjectName: projectName,
				Description: description,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created session %s (%s)\n", created.ID, created.ProjectName)
			return nil
		},
	}
	createCmd.Flags().StringVar(&userID, "user", "", "owning user id")
	createCmd.Flags().StringVar(&projectName, "project", "", "project name")
	createCmd.Flags().StringVar(&description, "desc", "", "project description (optional)")
	_ = createCmd.MarkFlagRequired("user")
	_ = createCmd.MarkFlagRequired("project")

	getCmd := &cobra.Command{
		Use:   "get <session-id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient(*apiURL)
			if err != nil {
				return err
			}
			session, err := client.GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, session)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list <user-id>",
		Short: "List a user's sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient(*apiURL)
			if err != nil {
				return err
			}
			sessions, err := client.ListSessions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, s := range sessions {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  %-12s  %s\n", s.ID, s.Status, s.ProjectName)
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient(*apiURL)
			if err != nil {
				return err
			}
			if err := client.DeleteSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	session.AddCommand(createCmd, getCmd, listCmd, deleteCmd)
	return session
}

func newAnswerCmd(apiURL *string) *cobra.Command {
	var stage int
	var questionID, text string
	var score float64

	answer := &cobra.Command{
		Use:   "answer <session-id>",
		Short: "Submit one answer for a stage question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient(*apiURL)
			if err != nil {
				return err
			}
			req := scoping.AnswerRequest{
				StageNumber: stage,
				QuestionID:  questionID,
				Answer:      text,
			}
			if cmd.Flags().Changed("score") {
				req.QualityScore = &score
			}
			receipt, err := client.SubmitAnswer(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", receipt.SessionID, receipt.Status)
			return nil
		},
	}
	answer.Flags().IntVar(&stage, "stage", 1, "stage number")
	answer.Flags().StringVar(&questionID, "question", "", "question id")
	answer.Flags().StringVar(&text, "text", "", "answer text")
	answer.Flags().Float64Var(&score, "score", 0, "quality score (optional, 0..1)")
	_ = answer.MarkFlagRequired("question")
	_ = answer.MarkFlagRequired("text")
	return answer
}

func newProgressCmd(apiURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <session-id>",
		Short: "Show the server's progress snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient(*apiURL)
			if err != nil {
				return err
			}
			progress, err := client.GetProgress(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, progress)
		},
	}
}

func newEventsCmd(apiURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "events <session-id>",
		Short: "Dump the session's event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient(*apiURL)
			if err != nil {
				return err
			}
			events, err := client.GetEvents(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, events)
		},
	}
}

func newWatchCmd(apiURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Tail the live event stream until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient(*apiURL)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sub, err := client.SubscribeToStream(ctx, args[0])
			if err != nil {
				return err
			}
			defer sub.Close()

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "watching session %s (ctrl-c to stop)\n", args[0])
			for {
				select {
				case <-ctx.Done():
					return nil
				case event, open := <-sub.Events():
					if !open {
						return sub.Err()
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  stage=%d  %s\n",
						event.Timestamp.Format("15:04:05"), event.StageNumber, event.Type)
				}
			}
		},
	}
}
