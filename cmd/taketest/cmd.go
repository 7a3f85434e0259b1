package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/SAP-F-2025/aptitude-service/internal/client"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	in     io.Reader
	out    io.Writer
	logger *slog.Logger

	lines *bufio.Scanner
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  list                  - list assigned tests")
	fmt.Fprintln(cli.out, "  take -test ID         - take an assigned test")
	fmt.Fprintln(cli.out, "  review -test ID       - show the review of a submitted test")
	fmt.Fprintln(cli.out, "  review -attempt ID    - show the detailed review of an attempt")
	fmt.Fprintln(cli.out, "Every command accepts -api URL (default $APTITUDE_API_URL).")
	fmt.Fprintln(cli.out, "The bearer token is read from $APTITUDE_TOKEN or prompted for.")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	cli.lines = bufio.NewScanner(cli.in)

	listCmd := flag.NewFlagSet("list", flag.ContinueOnError)
	listAPI := listCmd.String("api", os.Getenv("APTITUDE_API_URL"), "API base URL")

	takeCmd := flag.NewFlagSet("take", flag.ContinueOnError)
	takeAPI := takeCmd.String("api", os.Getenv("APTITUDE_API_URL"), "API base URL")
	takeTest := takeCmd.Uint("test", 0, "The test id")

	reviewCmd := flag.NewFlagSet("review", flag.ContinueOnError)
	reviewAPI := reviewCmd.String("api", os.Getenv("APTITUDE_API_URL"), "API base URL")
	reviewTest := reviewCmd.Uint("test", 0, "The submitted test id")
	reviewAttempt := reviewCmd.Uint("attempt", 0, "The attempt id for the detailed review")

	switch args[1] {
	case "list":
		if err := listCmd.Parse(args[2:]); err != nil {
			return err
		}
		api, err := cli.connect(*listAPI)
		if err != nil {
			return err
		}
		return cli.list(api)
	case "take":
		if err := takeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *takeTest == 0 {
			takeCmd.Usage()
			return errHelp
		}
		api, err := cli.connect(*takeAPI)
		if err != nil {
			return err
		}
		return cli.take(api, *takeTest)
	case "review":
		if err := reviewCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reviewTest == 0 && *reviewAttempt == 0 {
			reviewCmd.Usage()
			return errHelp
		}
		api, err := cli.connect(*reviewAPI)
		if err != nil {
			return err
		}
		if *reviewAttempt != 0 {
			return cli.detailedReview(api, *reviewAttempt)
		}
		return cli.review(api, *reviewTest)
	default:
		cli.printUsage()
		return errHelp
	}
}

// connect signs in with the configured or prompted token
func (cli *commandLine) connect(baseURL string) (*client.Client, error) {
	if baseURL == "" {
		return nil, errors.New("no API URL: pass -api or set APTITUDE_API_URL")
	}

	token := os.Getenv("APTITUDE_TOKEN")
	if token == "" {
		fmt.Fprint(cli.out, "Enter token:")
		raw, err := readPasswordFunc(int(os.Stdin.Fd()))
		fmt.Fprintln(cli.out)
		if err != nil {
			return nil, err
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return nil, errors.New("no token provided")
	}

	auth := client.NewAuthSession()
	auth.Login(token, "")
	auth.OnInvalidate(func() {
		fmt.Fprintln(cli.out, "Your session has expired. Please sign in again.")
	})
	return client.New(baseURL, auth, client.WithLogger(cli.logger)), nil
}

// readLine returns the next input line; ok is false at end of input
func (cli *commandLine) readLine() (string, bool) {
	if !cli.lines.Scan() {
		return "", false
	}
	return strings.TrimSpace(cli.lines.Text()), true
}
