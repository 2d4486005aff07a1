package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/service/booking"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Clinic portal command line client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("token", "", "Backend token (defaults to $"+tokenEnv+")")
	root.PersistentFlags().String("backend", "", "Backend base URL, overrides the config")
	root.PersistentFlags().String("config", "", "Directory holding config.yaml")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log backend calls")

	root.AddCommand(loginCmd())
	root.AddCommand(specializationsCmd())
	root.AddCommand(slotsCmd())
	root.AddCommand(bookCmd())
	return root
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print a token for " + tokenEnv,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password = os.Getenv("PORTAL_PASSWORD")
			}
			if strings.TrimSpace(email) == "" || password == "" {
				return fmt.Errorf("--email and --password (or PORTAL_PASSWORD) are required")
			}

			p, err := newPortal(cmd)
			if err != nil {
				return err
			}
			sess, err := p.auth.Login(cmd.Context(), email, password)
			if err != nil {
				return describe(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "signed in as %s (%s)\n", sess.Email, sess.Role)
			fmt.Fprintf(out, "export %s=%s\n", tokenEnv, sess.Token)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password (defaults to $PORTAL_PASSWORD)")
	return cmd
}

func specializationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "specializations",
		Short: "List the specializations that can be booked",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPortal(cmd)
			if err != nil {
				return err
			}
			sess, err := p.session(cmd.Context(), cmd)
			if err != nil {
				return describe(err)
			}
			specs, err := p.directory.Specializations(cmd.Context(), sess)
			if err != nil {
				return describe(err)
			}
			for _, s := range specs {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Show free slots for a specialization on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, _ := cmd.Flags().GetString("specialization")
			date, err := dateFlag(cmd)
			if err != nil {
				return err
			}

			p, err := newPortal(cmd)
			if err != nil {
				return err
			}
			sess, err := p.session(cmd.Context(), cmd)
			if err != nil {
				return describe(err)
			}
			table, err := p.directory.Availability(cmd.Context(), sess, spec, date)
			if err != nil {
				return describe(err)
			}
			if table.Empty() {
				fmt.Fprintf(cmd.OutOrStdout(), "no free slots for %s on %s\n", spec, date)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tDOCTOR ID\tDOCTOR\tLICENSE")
			for _, at := range table.Times() {
				for _, d := range table.Doctors(at) {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", at, d.DoctorID, d.DoctorName, d.LicenseNumber)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("specialization", "", "Specialization to search")
	cmd.Flags().String("date", "", "Date as YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("specialization")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func bookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book an appointment with a chosen doctor and time",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, _ := cmd.Flags().GetString("specialization")
			at, _ := cmd.Flags().GetString("time")
			doctor, _ := cmd.Flags().GetString("doctor")
			reason, _ := cmd.Flags().GetString("reason")
			visitType, _ := cmd.Flags().GetString("type")
			date, err := dateFlag(cmd)
			if err != nil {
				return err
			}

			p, err := newPortal(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			sess, err := p.session(ctx, cmd)
			if err != nil {
				return describe(err)
			}

			w, err := p.booking.Start(ctx, sess, "")
			if err != nil {
				return describe(err)
			}
			steps := []func() (*booking.Wizard, error){
				func() (*booking.Wizard, error) { return p.booking.ChooseSpecialization(ctx, sess, w.ID, spec) },
				func() (*booking.Wizard, error) { return p.booking.LoadSlots(ctx, sess, w.ID, date) },
				func() (*booking.Wizard, error) {
					return p.booking.Select(ctx, sess, w.ID, date, at, model.ID(doctor))
				},
				func() (*booking.Wizard, error) { return p.booking.Describe(ctx, sess, w.ID, visitType, reason) },
			}
			for _, step := range steps {
				if _, err := step(); err != nil {
					return describe(err)
				}
			}

			res, err := p.booking.Confirm(ctx, sess, w.ID)
			if err != nil {
				return describe(err)
			}
			done := res.Wizard.State.(booking.Submitted)
			fmt.Fprintf(cmd.OutOrStdout(), "booked appointment %s: %s %s with %s\n",
				done.AppointmentID, done.Selection.Date, done.Selection.Time, done.Selection.Doctor.DoctorName)
			return nil
		},
	}
	cmd.Flags().String("specialization", "", "Specialization")
	cmd.Flags().String("date", "", "Date as YYYY-MM-DD")
	cmd.Flags().String("time", "", "Time as HH:MM")
	cmd.Flags().String("doctor", "", "Doctor id offering the slot")
	cmd.Flags().String("reason", "", "Reason for the visit")
	cmd.Flags().String("type", string(model.VisitConsultation), "consultation, follow-up, procedure or emergency")
	for _, f := range []string{"specialization", "date", "time", "doctor", "reason"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func dateFlag(cmd *cobra.Command) (civil.Date, error) {
	raw, _ := cmd.Flags().GetString("date")
	date, err := civil.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		return civil.Date{}, fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
	}
	return date, nil
}

// describe turns a portal error into a one-line CLI message.
func describe(err error) error {
	switch errors.CodeOf(err) {
	case errors.ErrUnauthorized:
		return fmt.Errorf("%s (run portalctl login and export %s)", errors.MessageOf(err), tokenEnv)
	case errors.ErrInternal, errors.ErrNetwork, errors.ErrTimeout:
		return fmt.Errorf("backend error: %s", errors.MessageOf(err))
	default:
		return fmt.Errorf("%s", errors.MessageOf(err))
	}
}
