// Command learner is a terminal client for classwork: sign in, browse
// courses, read lessons, take quizzes and request certificates.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mind-engage/classwork/internal/apperr"
	"github.com/mind-engage/classwork/internal/client"
)

func defaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "classwork", "token")
}

func newClient(c *cli.Context) (*client.Client, error) {
	s, err := client.NewSession(client.FileTokenStore{Path: c.String("token-file")})
	if err != nil {
		return nil, err
	}
	s.Subscribe(func(ch client.Change) {
		if ch.Forced {
			fmt.Fprintln(c.App.ErrWriter, "Session expired. Run `learner login` again.")
		}
	})
	return client.New(c.String("server"), s, client.WithTimeout(c.Duration("timeout"))), nil
}

// friendly turns an error into a one-line message and an exit code.
func friendly(err error) error {
	if err == nil {
		return nil
	}
	switch apperr.KindOf(err) {
	case apperr.KindConflict:
		return cli.Exit(apperr.Message(err, "already exists"), 0)
	case apperr.KindUnauthorized:
		return cli.Exit(apperr.Message(err, "please sign in"), 2)
	case apperr.KindTransport:
		return cli.Exit("Could not reach the server. Try again later.", 3)
	default:
		return cli.Exit(apperr.Message(err, err.Error()), 1)
	}
}

func action(fn func(c *cli.Context, cl *client.Client) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cl, err := newClient(c)
		if err != nil {
			return err
		}
		return friendly(fn(c, cl))
	}
}

func main() {
	app := &cli.App{
		Name:  "learner",
		Usage: "take classwork courses from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Value: "http://localhost:8080", EnvVars: []string{"CLASSWORK_URL"}, Usage: "API base URL"},
			&cli.StringFlag{Name: "token-file", Value: defaultTokenPath(), EnvVars: []string{"CLASSWORK_TOKEN_FILE"}},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second},
		},
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "sign in and remember the token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", EnvVars: []string{"CLASSWORK_PASSWORD"}, Required: true},
				},
				Action: action(login),
			},
			{
				Name:  "register",
				Usage: "create a student account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", EnvVars: []string{"CLASSWORK_PASSWORD"}, Required: true},
					&cli.StringFlag{Name: "name"},
				},
				Action: action(register),
			},
			{Name: "logout", Usage: "forget the stored token", Action: action(logout)},
			{Name: "courses", Usage: "list published courses", Action: action(courses)},
			{Name: "enroll", Usage: "request enrollment in a course", ArgsUsage: "<courseID>", Action: action(enroll)},
			{Name: "enrollments", Usage: "show your enrollments and progress", Action: action(enrollments)},
			{Name: "learn", Usage: "show the lessons you can open", ArgsUsage: "<slug>", Action: action(learn)},
			{
				Name:      "lesson",
				Usage:     "read a lesson",
				ArgsUsage: "<slug> <lessonID>",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "complete", Usage: "mark the lesson complete"}},
				Action:    action(lesson),
			},
			{Name: "quiz", Usage: "take a chapter quiz", ArgsUsage: "<slug> <chapterID>", Action: action(takeQuiz)},
			{Name: "certificates", Usage: "show certificates and course completion", Action: action(certificates)},
			{Name: "request-certificate", Usage: "request a certificate for a finished course", ArgsUsage: "<courseID>", Action: action(requestCertificate)},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
