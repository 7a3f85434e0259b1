package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/aptitude-service/internal/client"
	"github.com/SAP-F-2025/aptitude-service/internal/models"
	"github.com/SAP-F-2025/aptitude-service/internal/session"
)

func (cli *commandLine) list(api *client.Client) error {
	assignments, err := api.ListAssignments(context.Background())
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		fmt.Fprintln(cli.out, "No tests assigned.")
		return nil
	}
	for _, a := range assignments {
		due := "-"
		if a.DueDate != nil {
			due = a.DueDate.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(cli.out, "%4d  %-40s  %3d min  %-12s  due %s\n",
			a.TestTemplate.ID, a.TestTemplate.Name, a.TestTemplate.TimeLimit, a.Status, due)
	}
	return nil
}

func (cli *commandLine) take(api *client.Client, testID uint) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	s := session.New(api, testID, session.Config{
		Logger: cli.logger,
		OnAutoSubmit: func(result *models.SubmitResult, err error) {
			if err != nil {
				fmt.Fprintf(cli.out, "\nTime is up. Automatic submission failed: %v\n", err)
				return
			}
			fmt.Fprintf(cli.out, "\nTime is up. %d answer(s) were submitted automatically. Press Enter.\n", result.Answered)
		},
	})
	defer s.Close()

	var view *client.TestView
	if err := cli.retry("loading the test", func() error {
		var err error
		view, err = s.Load(ctx)
		return err
	}); err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%s\n%s\nTime limit: %d minute(s), %d question(s)\n",
		view.Title, view.Description, view.TimeLimitMinutes, len(view.Questions))
	fmt.Fprintln(cli.out, "Press Enter to begin.")
	if _, ok := cli.readLine(); !ok {
		return nil
	}

	if err := cli.retry("starting the test", func() error { return s.Start(ctx) }); err != nil {
		return err
	}

	go s.RunTimer(ctx)

	for i, q := range view.Questions {
		if s.State() == session.Completed {
			break
		}
		cli.printQuestion(i+1, len(view.Questions), q, s.Remaining())

		line, ok := cli.readLine()
		if !ok || ctx.Err() != nil {
			break
		}
		if line == "" {
			continue
		}
		if err := s.RecordAnswer(q.ID, resolveAnswer(q, line)); err != nil {
			break
		}
	}

	if s.State() == session.Completed {
		return nil
	}
	return cli.submit(ctx, s)
}

func (cli *commandLine) submit(ctx context.Context, s *session.Session) error {
	for {
		result, err := s.Submit(ctx)
		switch {
		case err == nil:
			fmt.Fprintf(cli.out, "Answers submitted successfully (%d answered).\n", result.Answered)
			return nil
		case errors.Is(err, session.ErrSessionFinished), errors.Is(err, session.ErrSubmitInProgress):
			return nil
		case client.IsUnauthorized(err):
			return err
		}

		fmt.Fprintf(cli.out, "Submission failed: %v\nYour answers are kept. Retry? [Y/n] ", err)
		line, ok := cli.readLine()
		if !ok || strings.EqualFold(line, "n") {
			return err
		}
	}
}

// retry runs fn until it succeeds, fails for good, or the user gives up
func (cli *commandLine) retry(what string, fn func() error) error {
	for {
		err := fn()
		if err == nil || !client.IsRetryable(err) {
			return err
		}
		fmt.Fprintf(cli.out, "Failed %s: %v\nRetry? [Y/n] ", what, err)
		line, ok := cli.readLine()
		if !ok || strings.EqualFold(line, "n") {
			return err
		}
	}
}

func (cli *commandLine) printQuestion(n, total int, q models.QuestionView, remaining int) {
	if remaining < 0 {
		remaining = 0
	}
	fmt.Fprintf(cli.out, "\n[%d/%d] (%d pts, %02d:%02d left) %s\n", n, total, q.Points, remaining/60, remaining%60, q.Text)
	switch q.Type {
	case models.QuestionMultipleChoice:
		for i, opt := range q.Options {
			fmt.Fprintf(cli.out, "  %d) %s\n", i+1, opt)
		}
	case models.QuestionBoolean:
		fmt.Fprintln(cli.out, "  true / false")
	}
	fmt.Fprint(cli.out, "> ")
}

// resolveAnswer maps option numbers and boolean shorthands onto answer text
func resolveAnswer(q models.QuestionView, line string) string {
	switch q.Type {
	case models.QuestionMultipleChoice:
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(q.Options) {
			return q.Options[n-1]
		}
	case models.QuestionBoolean:
		switch strings.ToLower(line) {
		case "t", "y", "yes", "true":
			return "true"
		case "f", "n", "no", "false":
			return "false"
		}
	}
	return line
}

func (cli *commandLine) review(api *client.Client, testID uint) error {
	s := session.New(api, testID, session.Config{Logger: cli.logger})
	reviews, summary, err := s.Review(context.Background())
	if err != nil {
		return err
	}

	for i, r := range reviews {
		fmt.Fprintf(cli.out, "%d. %s\n   answer: %s\n   %s", i+1, r.Text, r.SubmittedAnswer, r.Status)
		if r.PointsAwarded != nil {
			fmt.Fprintf(cli.out, " (%g/%d)", *r.PointsAwarded, r.Points)
		}
		fmt.Fprintln(cli.out)
	}
	if summary != nil {
		fmt.Fprintf(cli.out, "Score %g/%d, %.1f%%, grade %s\n", summary.TotalScore, summary.TotalPoints, summary.Percentage, summary.Grade)
	} else {
		fmt.Fprintln(cli.out, "Not marked yet.")
	}
	return nil
}

func (cli *commandLine) detailedReview(api *client.Client, attemptID uint) error {
	review, err := api.GetDetailedReview(context.Background(), attemptID)
	if err != nil {
		return err
	}

	stats := review.Breakdown.Statistics
	fmt.Fprintf(cli.out, "Attempt %d (%s)\n", review.AttemptID, review.Status)
	for i, r := range review.Breakdown.QuestionResults {
		fmt.Fprintf(cli.out, "%d. %s: %s [%s]\n", i+1, r.Text, r.SubmittedAnswer, r.Status)
	}
	fmt.Fprintf(cli.out, "%d/%d answered, %d correct, %d incorrect, %d for manual review\n",
		stats.Answered, stats.TotalQuestions, stats.Correct, stats.Incorrect, stats.ManualReview)
	fmt.Fprintf(cli.out, "Score %g/%d, %.1f%%, grade %s\n", stats.TotalScore, stats.TotalPoints, stats.Percentage, stats.Grade)
	if review.Feedback != nil {
		fmt.Fprintf(cli.out, "Feedback: %s\n", *review.Feedback)
	}
	return nil
}
