package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mind-engage/classwork/internal/classwork"
	"github.com/mind-engage/classwork/internal/client"
	"github.com/mind-engage/classwork/internal/console"
	"github.com/mind-engage/classwork/internal/quiz"
)

func args(c *cli.Context, n int) ([]string, error) {
	if c.Args().Len() != n {
		return nil, cli.Exit("usage: learner "+c.Command.Name+" "+c.Command.ArgsUsage, 1)
	}
	return c.Args().Slice(), nil
}

func login(c *cli.Context, cl *client.Client) error {
	u, err := cl.Login(c.Context, c.String("email"), c.String("password"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Signed in as %s (%s)\n", u.Email, u.Role)
	return nil
}

func register(c *cli.Context, cl *client.Client) error {
	u, err := cl.Register(c.Context, c.String("email"), c.String("password"), c.String("name"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Welcome, %s\n", u.Email)
	return nil
}

func logout(c *cli.Context, cl *client.Client) error {
	if err := cl.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "Signed out")
	return nil
}

func courses(c *cli.Context, cl *client.Client) error {
	cs, err := cl.ListCourses(c.Context)
	if err != nil {
		return err
	}
	for _, co := range cs {
		fmt.Fprintf(c.App.Writer, "%-24s %-40s EUR %.2f / INR %.2f  [%s]\n", co.Slug, co.Title, co.PriceEUR, co.PriceINR, co.ID)
	}
	return nil
}

func enroll(c *cli.Context, cl *client.Client) error {
	a, err := args(c, 1)
	if err != nil {
		return err
	}
	e, err := cl.CreateEnrollment(c.Context, a[0], nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Enrollment %s is %s\n", e.ID, e.PaymentStatus)
	return nil
}

func enrollments(c *cli.Context, cl *client.Client) error {
	es, err := cl.ListMyEnrollments(c.Context)
	if err != nil {
		return err
	}
	for _, e := range es {
		title := e.CourseID
		if e.Course != nil {
			title = e.Course.Title
		}
		pct := 0.0
		if e.Progress != nil {
			pct = e.Progress.Percent
		}
		fmt.Fprintf(c.App.Writer, "%-40s %-10s %3.0f%%\n", title, e.PaymentStatus, pct)
	}
	return nil
}

// openConsole resolves the signed-in user and opens the course. It fails
// closed: any error means nothing of the course is shown.
func openConsole(c *cli.Context, cl *client.Client, slug string) (*console.Console, error) {
	me, err := cl.Me(c.Context)
	if err != nil {
		return nil, err
	}
	con := console.New(cl, me.ID)
	if err := con.Open(c.Context, slug); err != nil {
		return nil, err
	}
	return con, nil
}

func learn(c *cli.Context, cl *client.Client) error {
	a, err := args(c, 1)
	if err != nil {
		return err
	}
	con, err := openConsole(c, cl, a[0])
	if err != nil {
		return err
	}
	o, _ := con.Outline()
	w := c.App.Writer
	fmt.Fprintf(w, "%s  (%d/%d lessons done)\n", o.Course.Title, o.Done, o.Total)
	if !o.Enrolled {
		fmt.Fprintln(w, "Preview access: enroll to unlock every lesson.")
	}
	for _, ch := range o.Chapters {
		fmt.Fprintf(w, "\n%s  [%s]\n", ch.Title, ch.ID)
		for _, l := range ch.Lessons {
			mark := " "
			if l.Completed {
				mark = "x"
			}
			fmt.Fprintf(w, "  [%s] %s  (%s)\n", mark, l.Title, l.ID)
		}
		if ch.Quiz != nil {
			fmt.Fprintf(w, "  quiz: %s, pass at %d%%\n", ch.Quiz.Title, ch.Quiz.PassingScore)
		}
	}
	return nil
}

func lesson(c *cli.Context, cl *client.Client) error {
	a, err := args(c, 2)
	if err != nil {
		return err
	}
	con, err := openConsole(c, cl, a[0])
	if err != nil {
		return err
	}
	v, err := con.OpenLesson(a[1])
	if err != nil {
		return cli.Exit("That lesson is locked. Enroll to open it.", 1)
	}
	printLesson(c.App.Writer, v.Lesson)
	if v, err = con.LoadClips(c.Context, a[1]); err != nil {
		return err
	}
	printClips(c.App.Writer, v.Clips)
	if !c.Bool("complete") {
		return nil
	}
	if !v.CanComplete {
		return cli.Exit("Progress is tracked for enrolled learners only.", 1)
	}
	if err := con.CompleteLesson(c.Context, a[1]); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "Marked complete.")
	if next, ok := con.Current(); ok && next.Lesson.ID != a[1] {
		fmt.Fprintf(c.App.Writer, "Next up: %s (%s)\n", next.Lesson.Title, next.Lesson.ID)
	}
	return nil
}

func printLesson(w io.Writer, l classwork.Lesson) {
	fmt.Fprintf(w, "# %s\n", l.Title)
	if l.Description != nil {
		fmt.Fprintln(w, *l.Description)
	}
	if l.VideoURL != nil {
		fmt.Fprintf(w, "video:    %s\n", *l.VideoURL)
	}
	if l.NotebookURL != nil {
		fmt.Fprintf(w, "notebook: %s\n", *l.NotebookURL)
	}
	if l.Notes != nil {
		fmt.Fprintf(w, "\n%s\n", *l.Notes)
	}
}

func printClips(w io.Writer, clips []classwork.VideoClip) {
	if len(clips) == 0 {
		return
	}
	fmt.Fprintln(w, "\nclips:")
	for _, cl := range clips {
		span := clock(cl.StartSeconds)
		if cl.EndSeconds != nil {
			span += "-" + clock(*cl.EndSeconds)
		}
		fmt.Fprintf(w, "  %s  %s\n", span, cl.Title)
		if cl.Notes != nil {
			fmt.Fprintf(w, "      %s\n", *cl.Notes)
		}
	}
}

func clock(sec int) string { return fmt.Sprintf("%d:%02d", sec/60, sec%60) }

func takeQuiz(c *cli.Context, cl *client.Client) error {
	a, err := args(c, 2)
	if err != nil {
		return err
	}
	con, err := openConsole(c, cl, a[0])
	if err != nil {
		return err
	}
	e, err := con.OpenQuiz(a[1])
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.Load(c.Context); err != nil {
		return err
	}
	w := c.App.Writer
	if e.State() == quiz.StateEmpty {
		fmt.Fprintln(w, "This quiz has no questions yet.")
		return nil
	}

	in := bufio.NewScanner(c.App.Reader)
	for {
		v := e.View()
		switch v.State {
		case quiz.StateInProgress:
			q := v.Question
			fmt.Fprintf(w, "\n(%d/%d) %s\n", v.Index+1, v.Total, q.Text)
			for i, o := range q.Options {
				fmt.Fprintf(w, "  %d) %s\n", i+1, o)
			}
			fmt.Fprint(w, "> ")
			if !in.Scan() {
				return in.Err()
			}
			if err := e.Answer(pick(q.Options, in.Text())); err != nil {
				fmt.Fprintln(w, "Please choose one of the options.")
				continue
			}
			if e.CanNext() {
				_ = e.Next()
				continue
			}
			if _, err := e.Submit(c.Context); err != nil {
				fmt.Fprintf(w, "Submit failed: %v\n", err)
				return err
			}
		case quiz.StateResults:
			printResults(w, v.Submission, e.RoundedPercentage(), e.Passed())
			fmt.Fprint(w, "Retry? [y/N] ")
			if !in.Scan() || !strings.EqualFold(strings.TrimSpace(in.Text()), "y") {
				return nil
			}
			if err := e.Retry(); err != nil {
				return err
			}
		default:
			return v.Err
		}
	}
}

// pick accepts an option number or the option text itself.
func pick(options []string, input string) string {
	input = strings.TrimSpace(input)
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	return input
}

func printResults(w io.Writer, s *classwork.Submission, pct int, passed bool) {
	if s == nil {
		return
	}
	fmt.Fprintln(w)
	for _, r := range s.Results {
		mark := "✗"
		if r.IsCorrect {
			mark = "✓"
		}
		fmt.Fprintf(w, "%s %s\n    you: %s  answer: %s\n", mark, r.QuestionText, r.UserAnswer, r.CorrectAnswer)
		if r.Explanation != nil {
			fmt.Fprintf(w, "    %s\n", *r.Explanation)
		}
	}
	verdict := "not passed"
	if passed {
		verdict = "passed"
	}
	fmt.Fprintf(w, "\nScore %d/%d (%d%%), %s (needs %d%%)\n", s.Score, s.MaxScore, pct, verdict, s.PassingScore)
}

func certificates(c *cli.Context, cl *client.Client) error {
	o, err := cl.GetCertificatesOverview(c.Context)
	if err != nil {
		return err
	}
	w := c.App.Writer
	for _, cc := range o.Completions {
		state := fmt.Sprintf("%d/%d lessons", cc.CompletedLessons, cc.TotalLessons)
		if cc.IsComplete && !cc.HasCertificate {
			state += ", ready for a certificate"
		}
		fmt.Fprintf(w, "%-40s %s  [%s]\n", cc.CourseTitle, state, cc.CourseID)
	}
	for _, cert := range o.Certificates {
		title := cert.CourseID
		if cert.Course != nil {
			title = cert.Course.Title
		}
		num := "-"
		if cert.CertificateNumber != nil {
			num = *cert.CertificateNumber
		}
		fmt.Fprintf(w, "certificate %-30s %-9s %s\n", title, cert.Status, num)
	}
	return nil
}

func requestCertificate(c *cli.Context, cl *client.Client) error {
	a, err := args(c, 1)
	if err != nil {
		return err
	}
	cert, err := cl.RequestCertificate(c.Context, a[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Certificate requested (%s), status %s\n", cert.ID, cert.Status)
	return nil
}
