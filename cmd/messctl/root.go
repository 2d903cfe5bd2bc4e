package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"hostelmess/internal/auth"
	"hostelmess/internal/calendar"
	"hostelmess/internal/client"
	"hostelmess/internal/mess"
	"hostelmess/internal/student"
)

type app struct {
	apiURL      string
	sessionPath string
	out         io.Writer
}

func (a *app) client() *client.Client {
	return client.New(a.apiURL, nil)
}

func (a *app) session() (auth.Session, error) {
	s, err := loadSession(a.sessionPath)
	if err != nil {
		return auth.Session{}, err
	}
	if !s.Valid(time.Now()) {
		return auth.Session{}, fmt.Errorf("%w: run messctl login", client.ErrNoSession)
	}
	return s, nil
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}
	apiDefault := os.Getenv("MESSCTL_API")
	if apiDefault == "" {
		apiDefault = "http://localhost:8081"
	}

	root := &cobra.Command{
		Use:           "messctl",
		Short:         "Manage the hostel mess from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.apiURL, "api", apiDefault, "API base URL")
	root.PersistentFlags().StringVar(&a.sessionPath, "session", defaultSessionPath(), "session file")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.studentsCmd(),
		a.attendanceCmd(),
		a.ledgerCmd(),
		a.issuesCmd(),
		a.reportCmd(),
		a.menuCmd(),
	)
	return root
}

func (a *app) loginCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "login", Short: "Sign in as an admin or a student"}

	var username, password string
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Sign in as an admin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.client().LoginAdmin(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "signed in as %s until %s\n", s.Name, s.ExpiresAt.Local().Format(time.RFC1123))
			return saveSession(a.sessionPath, s)
		},
	}
	admin.Flags().StringVarP(&username, "username", "u", "", "admin username")
	admin.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = admin.MarkFlagRequired("username")
	_ = admin.MarkFlagRequired("password")

	var email, spw string
	stu := &cobra.Command{
		Use:   "student",
		Short: "Sign in as a student",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.client().LoginStudent(cmd.Context(), email, spw)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "signed in as %s\n", s.Name)
			return saveSession(a.sessionPath, s)
		},
	}
	stu.Flags().StringVarP(&email, "email", "e", "", "student email")
	stu.Flags().StringVarP(&spw, "password", "p", "", "password")
	_ = stu.MarkFlagRequired("email")
	_ = stu.MarkFlagRequired("password")

	cmd.AddCommand(admin, stu)
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(*cobra.Command, []string) error {
			return clearSession(a.sessionPath)
		},
	}
}

func (a *app) printStudents(list []client.Student) {
	w := a.table()
	fmt.Fprintln(w, "ID\tROLL\tNAME\tSTATUS\tSUBSCRIPTION")
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.RollNumber, s.Name, s.Status, s.Subscription.Label)
	}
	_ = w.Flush()
}

func (a *app) studentsCmd() *cobra.Command {
	var q student.Query
	var tag string
	cmd := &cobra.Command{
		Use:   "students",
		Short: "List the roster, optionally through a view tag",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			if tag != "" {
				ft, err := mess.ParseFilterTag(tag)
				if err != nil {
					return err
				}
				res, err := a.client().Filter(cmd.Context(), sess, ft, q.Search)
				if err != nil {
					return err
				}
				a.printStudents(res.Students)
				for _, t := range mess.FilterTags {
					fmt.Fprintf(a.out, "%s=%d ", t, res.Counts[t])
				}
				fmt.Fprintln(a.out)
				return nil
			}
			page, err := a.client().Students(cmd.Context(), sess, q)
			if err != nil {
				return err
			}
			a.printStudents(page.Students)
			fmt.Fprintf(a.out, "page %d of %d, %d students\n", page.CurrentPage, page.TotalPages, page.Total)
			return nil
		},
	}
	cmd.Flags().StringVarP(&q.Search, "search", "s", "", "name or roll number substring")
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.Limit, "limit", student.DefaultLimit, "page size")
	cmd.Flags().StringVar(&tag, "tag", "", "view: Active, OnLeave, ExpiringSoon, Expired or Terminated")
	return cmd
}

func parseDay(s string) (calendar.Date, error) {
	if s == "" {
		return calendar.FromTime(time.Now()), nil
	}
	return calendar.Parse(s)
}

func (a *app) attendanceCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "attendance", Short: "Show or mark meal attendance"}

	var showDate string
	show := &cobra.Command{
		Use:   "show",
		Short: "Show a day's attendance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			day, err := parseDay(showDate)
			if err != nil {
				return err
			}
			records, err := a.client().Attendance(cmd.Context(), sess, day)
			if err != nil {
				return err
			}
			w := a.table()
			fmt.Fprintln(w, "STUDENT\tMORNING\tEVENING")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%t\t%t\n", r.StudentID, r.Morning, r.Evening)
			}
			return w.Flush()
		},
	}
	show.Flags().StringVarP(&showDate, "date", "d", "", "day (YYYY-MM-DD), default today")

	var markDate string
	var off bool
	mark := &cobra.Command{
		Use:   "mark STUDENT_ID morning|evening",
		Short: "Mark a meal as taken (or not, with --off)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			meal, err := mess.ParseMeal(args[1])
			if err != nil {
				return err
			}
			day, err := parseDay(markDate)
			if err != nil {
				return err
			}
			// ToggleMeal sends !current.
			rec, err := a.client().ToggleMeal(cmd.Context(), sess, args[0], day, meal, off)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s %s: morning=%t evening=%t\n", rec.StudentID, rec.Date, rec.Morning, rec.Evening)
			return nil
		},
	}
	mark.Flags().StringVarP(&markDate, "date", "d", "", "day (YYYY-MM-DD), default today")
	mark.Flags().BoolVar(&off, "off", false, "mark the meal as not taken")

	cmd.AddCommand(show, mark)
	return cmd
}

func (a *app) printLedger(l mess.Ledger) {
	w := a.table()
	fmt.Fprintf(w, "eligible days\t%d\n", l.EligibleDays)
	fmt.Fprintf(w, "allotted\t%d\n", l.TotalAllotted)
	fmt.Fprintf(w, "consumed\t%d (morning %d, evening %d)\n", l.TotalConsumed, l.ConsumedMorning, l.ConsumedEvening)
	fmt.Fprintf(w, "remaining\t%d\n", l.Remaining)
	_ = w.Flush()
}

func (a *app) ledgerCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "ledger [STUDENT_ID]",
		Short: "Show a meal ledger; students see their own",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			c := a.client()
			if sess.Is(auth.RoleStudent) {
				if month == "" {
					month = calendar.MonthOf(calendar.FromTime(time.Now()))
				}
				d, err := c.Dashboard(cmd.Context(), sess, month)
				if err != nil {
					return err
				}
				a.printLedger(d.Ledger)
				fmt.Fprintf(a.out, "%d day(s) with attendance in %s\n", len(d.Attendance), d.Month)
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("admins must name a student")
			}
			res, err := c.StudentLedger(cmd.Context(), sess, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s (%s): %s\n", res.Student.Name, res.Student.RollNumber, res.Subscription.Label)
			a.printLedger(res.Ledger)
			return nil
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "month for the attendance summary (YYYY-MM)")
	return cmd
}

func (a *app) issuesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "issues", Short: "Raise, list and resolve issues"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List issues, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			issues, err := a.client().Issues(cmd.Context(), sess)
			if err != nil {
				return err
			}
			w := a.table()
			fmt.Fprintln(w, "ID\tSTATUS\tTITLE")
			for _, is := range issues {
				fmt.Fprintf(w, "%s\t%s\t%s\n", is.ID, is.Status, is.Title)
			}
			return w.Flush()
		},
	}

	resolve := &cobra.Command{
		Use:   "resolve ISSUE_ID",
		Short: "Mark an issue resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			is, err := a.client().ResolveIssue(cmd.Context(), sess, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s is %s\n", is.ID, is.Status)
			return nil
		},
	}

	var title, description string
	raise := &cobra.Command{
		Use:   "raise",
		Short: "Raise an issue (no sign-in needed)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			is, err := a.client().RaiseIssue(cmd.Context(), title, description)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "issue %s submitted\n", is.ID)
			return nil
		},
	}
	raise.Flags().StringVarP(&title, "title", "t", "", "short title")
	raise.Flags().StringVarP(&description, "description", "d", "", "what happened")
	_ = raise.MarkFlagRequired("title")
	_ = raise.MarkFlagRequired("description")

	cmd.AddCommand(list, resolve, raise)
	return cmd
}

func (a *app) reportCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "report", Short: "Meal reports"}
	var date string
	daily := &cobra.Command{
		Use:   "daily",
		Short: "Meals taken on a day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			var day calendar.Date
			if date != "" {
				if day, err = calendar.Parse(date); err != nil {
					return err
				}
			}
			sum, err := a.client().DailySummary(cmd.Context(), sess, day)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: morning %d, evening %d, total %d, active students %d\n",
				sum.Date, sum.MorningMeals, sum.EveningMeals, sum.TotalMeals, sum.TotalActiveStudents)
			return nil
		},
	}
	daily.Flags().StringVarP(&date, "date", "d", "", "day (YYYY-MM-DD), default today")
	cmd.AddCommand(daily)
	return cmd
}

func (a *app) menuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Print the weekly menu",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			b, err := a.client().Menu(ctx)
			if err != nil {
				return err
			}
			w := a.table()
			fmt.Fprintln(w, "DAY\tLUNCH\tDINNER")
			for _, r := range b.Menu {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Day, r.Lunch, r.Dinner)
			}
			return w.Flush()
		},
	}
}
