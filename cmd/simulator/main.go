package main

import (
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/dom/taskflow/internal/domain"
	"github.com/dom/taskflow/internal/logging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const demoPassword = "secret1"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var apiURL string

	root := &cobra.Command{
		Use:          "simulator",
		Short:        "Development tool that drives the TaskFlow API",
		SilenceUsage: true,
	}

	defaultURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		defaultURL = envURL
	}
	root.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "backend API URL (env API_URL)")

	log := logging.New("info", "development")
	client := func() *APIClient { return NewAPIClient(apiURL) }

	root.AddCommand(
		newSeedCmd(client, log),
		newLoadCmd(client, log),
	)

	return root
}

// newSeedCmd replays the alice/bob walkthrough against a running server.
func newSeedCmd(client func() *APIClient, log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo users and tasks and exercise the access rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(client(), log)
		},
	}
}

func runSeed(c *APIClient, log *logrus.Logger) error {
	alice, err := c.EnsureUser("Alice", "alice@example.com", demoPassword, "user")
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"user": alice.User.Email, "role": alice.User.Role}).Info("logged in")

	bob, err := c.EnsureUser("Bob", "bob@example.com", demoPassword, "admin")
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"user": bob.User.Email, "role": bob.User.Role}).Info("logged in")

	taskID, err := c.CreateTask(alice.Token, TaskInput{Title: "Write report"})
	if err != nil {
		return fmt.Errorf("alice creating task: %w", err)
	}
	log.WithField("task_id", taskID).Info("alice created a task")

	bobTaskID, err := c.CreateTask(bob.Token, TaskInput{Title: "Review roadmap", Priority: "high"})
	if err != nil {
		return fmt.Errorf("bob creating task: %w", err)
	}

	tasks, err := c.ListTasks(bob.Token)
	if err != nil {
		return fmt.Errorf("bob listing tasks: %w", err)
	}
	for _, t := range tasks {
		log.WithFields(logrus.Fields{"title": t.Title, "owner": t.UserName, "priority": t.Priority, "status": t.Status}).Info("bob sees task")
	}

	err = c.DeleteTask(alice.Token, uuid.NewString())
	expect(log, "alice deletes a missing task", err, http.StatusNotFound)

	err = c.UpdateTask(alice.Token, bobTaskID, TaskInput{Title: "Hijacked", Priority: "low", Status: "completed"})
	expect(log, "alice updates bob's task", err, http.StatusForbidden)

	stats, err := c.Stats(alice.Token)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"total": stats.Total, "overdue": stats.Overdue}).Info("alice's stats")
	return nil
}

func expect(log *logrus.Logger, step string, err error, status int) {
	entry := log.WithField("step", step)
	switch {
	case IsStatus(err, status):
		entry.WithField("status", status).Info("rejected as expected")
	case err == nil:
		entry.Warn("unexpectedly succeeded")
	default:
		entry.WithError(err).Warn("unexpected failure")
	}
}

func newLoadCmd(client func() *APIClient, log *logrus.Logger) *cobra.Command {
	var (
		count int
		email string
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Create random tasks for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			return runLoad(client(), log, email, count)
		},
	}
	cmd.Flags().IntVar(&count, "count", 20, "number of tasks to create")
	cmd.Flags().StringVar(&email, "email", "loadtest@example.com", "account that owns the tasks (created if missing)")

	return cmd
}

var (
	verbs = []string{"Write", "Review", "Fix", "Plan", "Test", "Deploy", "Document"}
	nouns = []string{"report", "release", "login page", "budget", "migration", "onboarding", "dashboard"}
)

func runLoad(c *APIClient, log *logrus.Logger, email string, count int) error {
	session, err := c.EnsureUser("Load Tester", email, demoPassword, "user")
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := time.Now()
	failed := 0

	for i := 0; i < count; i++ {
		input := TaskInput{
			Title:    fmt.Sprintf("%s %s #%d", verbs[rng.Intn(len(verbs))], nouns[rng.Intn(len(nouns))], i+1),
			Priority: string(domain.AllPriorities[rng.Intn(len(domain.AllPriorities))]),
			Status:   string(domain.AllTaskStatuses[rng.Intn(len(domain.AllTaskStatuses))]),
		}
		if rng.Intn(3) > 0 {
			due := time.Now().AddDate(0, 0, rng.Intn(30)-10).Format("2006-01-02")
			input.DueDate = &due
		}

		if _, err := c.CreateTask(session.Token, input); err != nil {
			failed++
			log.WithError(err).WithField("title", input.Title).Warn("create failed")
		}
	}

	stats, err := c.Stats(session.Token)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"created": count - failed,
		"failed":  failed,
		"elapsed": time.Since(start).Round(time.Millisecond),
		"total":   stats.Total,
		"overdue": stats.Overdue,
	}).Info("load complete")
	return nil
}
