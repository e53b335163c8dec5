package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/domain/auth"
	"github.com/medvault/medvault/internal/domain/records"
	"github.com/medvault/medvault/internal/platform/api"
	"github.com/medvault/medvault/internal/platform/export"
	"github.com/medvault/medvault/internal/platform/session"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medvault",
		Short: "MedVault medical records client",
	}

	rootCmd.AddCommand(authCmd())
	rootCmd.AddCommand(signupCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(resendCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(patientsCmd())
	rootCmd.AddCommand(treatmentCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runtime bundles the pieces every command needs.
type runtime struct {
	cfg    *config.Config
	logger zerolog.Logger
	tokens session.Store
	client *api.Client
}

func newRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	tokens := session.NewFileStore(cfg.TokenFile)
	client := api.NewClient(cfg.APIBaseURL, time.Duration(cfg.HTTPTimeoutSeconds)*time.Second, tokens, logger)

	return &runtime{cfg: cfg, logger: logger, tokens: tokens, client: client}, nil
}

// restore resolves the startup session, or an error when unauthenticated.
func (rt *runtime) restore(ctx context.Context) (*auth.Session, error) {
	sess := auth.NewBootstrapper(rt.client, rt.tokens, rt.logger).Restore(ctx)
	if sess == nil {
		return nil, fmt.Errorf("not signed in, run `medvault login` first")
	}
	return sess, nil
}

// ---------------------------------------------------------------------------
// Interactive auth flow
// ---------------------------------------------------------------------------

func authCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Interactive sign-in / sign-up flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			ctrl := auth.NewController(rt.client, rt.tokens, rt.logger)
			defer ctrl.Close()
			return runAuthFlow(cmd.Context(), ctrl, bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout())
		},
	}
}

// runAuthFlow walks the role-selection / credential-form / OTP state machine
// over a line-based prompt loop, surfacing every failure next to the step
// that caused it and never aborting the loop on a recoverable error.
func runAuthFlow(ctx context.Context, ctrl *auth.Controller, in *bufio.Reader, out io.Writer) error {
	for {
		switch ctrl.State() {
		case auth.StateRoleSelect:
			answer, err := prompt(in, out, "sign in as [d]octor or [p]atient: ")
			if err != nil {
				return err
			}
			role := api.RolePatient
			if strings.HasPrefix(strings.ToLower(answer), "d") {
				role = api.RoleDoctor
			}
			if err := ctrl.SelectRole(role); err != nil {
				fmt.Fprintln(out, err)
			}

		case auth.StateCredentials:
			if notice := ctrl.Notice(); notice != "" {
				fmt.Fprintln(out, notice)
			}
			if ctrl.Mode() == auth.ModeSignIn {
				if done, err := promptSignIn(ctx, ctrl, in, out); done || err != nil {
					return err
				}
			} else {
				if err := promptSignUp(ctx, ctrl, in, out); err != nil {
					return err
				}
			}

		case auth.StateOTPVerify:
			if err := promptOTP(ctx, ctrl, in, out); err != nil {
				return err
			}
		}
	}
}

func promptSignIn(ctx context.Context, ctrl *auth.Controller, in *bufio.Reader, out io.Writer) (bool, error) {
	email, err := prompt(in, out, "email (or 'signup' to register): ")
	if err != nil {
		return false, err
	}
	if strings.EqualFold(email, "signup") {
		return false, ctrl.SetMode(auth.ModeSignUp)
	}

	password, err := prompt(in, out, "password: ")
	if err != nil {
		return false, err
	}

	user, err := ctrl.SignIn(ctx, email, password)
	if err != nil {
		fmt.Fprintln(out, err)
		return false, nil
	}
	fmt.Fprintf(out, "signed in as %s (%s)\n", user.Name, user.Role)
	return true, nil
}

func promptSignUp(ctx context.Context, ctrl *auth.Controller, in *bufio.Reader, out io.Writer) error {
	form := auth.SignupForm{}
	var err error
	if form.Name, err = prompt(in, out, "full name: "); err != nil {
		return err
	}
	if form.Email, err = prompt(in, out, "email: "); err != nil {
		return err
	}
	if form.CNIC, err = prompt(in, out, "national id (12345-1234567-1): "); err != nil {
		return err
	}
	if form.Password, err = prompt(in, out, "password: "); err != nil {
		return err
	}

	msg, err := ctrl.SignUp(ctx, form)
	if err != nil {
		fmt.Fprintln(out, err)
		return nil
	}
	fmt.Fprintln(out, msg)
	return nil
}

func promptOTP(ctx context.Context, ctrl *auth.Controller, in *bufio.Reader, out io.Writer) error {
	answer, err := prompt(in, out, fmt.Sprintf("6-digit code for %s (%ds left, 'resend' when expired): ",
		ctrl.PendingEmail(), ctrl.CountdownRemaining()))
	if err != nil {
		return err
	}

	if strings.EqualFold(answer, "resend") {
		msg, err := ctrl.ResendOTP(ctx)
		if err != nil {
			fmt.Fprintln(out, err)
			return nil
		}
		fmt.Fprintln(out, msg)
		return nil
	}

	ctrl.SetEnteredCode(answer)
	if err := ctrl.VerifyOTP(ctx); err != nil {
		fmt.Fprintln(out, err)
	}
	return nil
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("input closed")
	}
	return strings.TrimSpace(line), nil
}

// ---------------------------------------------------------------------------
// One-shot auth commands
// ---------------------------------------------------------------------------

func signupCmd() *cobra.Command {
	var form auth.SignupForm
	var role string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Start an OTP-gated registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}

			form.Role = api.Role(strings.ToUpper(role))
			if form.Role != api.RoleDoctor && form.Role != api.RolePatient {
				return fmt.Errorf("role must be doctor or patient")
			}
			if err := form.Validate(); err != nil {
				return err
			}

			msg, err := rt.client.Signup(cmd.Context(), api.SignupRequest{
				CNIC:     form.CNIC,
				Name:     form.Name,
				Email:    form.Email,
				Password: form.Password,
				Role:     form.Role,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			fmt.Fprintln(cmd.OutOrStdout(), "check your email and run `medvault verify`")
			return nil
		},
	}

	cmd.Flags().StringVar(&form.Name, "name", "", "full name")
	cmd.Flags().StringVar(&form.Email, "email", "", "email address")
	cmd.Flags().StringVar(&form.CNIC, "cnic", "", "national id (12345-1234567-1)")
	cmd.Flags().StringVar(&form.Password, "password", "", "password (min 6 characters)")
	cmd.Flags().StringVar(&role, "role", "patient", "doctor or patient")
	return cmd
}

func verifyCmd() *cobra.Command {
	var email, code string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Confirm a registration with the emailed code",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			if !auth.ValidateOTPCode(code) {
				return fmt.Errorf("enter the 6-digit code")
			}

			// Verification finalizes the account but does not sign in.
			if _, err := rt.client.VerifyOTP(cmd.Context(), email, code); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "account verified, run `medvault login` to sign in")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email the code was sent to")
	cmd.Flags().StringVar(&code, "code", "", "6-digit code")
	return cmd
}

func resendCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "resend",
		Short: "Request a fresh verification code",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			msg, err := rt.client.ResendOTP(cmd.Context(), email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email the registration was started with")
	return cmd
}

func loginCmd() *cobra.Command {
	var email, password, role string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange credentials for a session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}

			r := api.Role(strings.ToUpper(role))
			if r != api.RoleDoctor && r != api.RolePatient {
				return fmt.Errorf("role must be doctor or patient")
			}
			if email == "" || password == "" {
				return fmt.Errorf("email and password are required")
			}

			result, err := rt.client.Login(cmd.Context(), email, password, r)
			if err != nil {
				return err
			}
			if err := rt.tokens.SetToken(result.Token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", result.User.Name, result.User.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&role, "role", "patient", "doctor or patient")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			if err := rt.tokens.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// Data commands
// ---------------------------------------------------------------------------

func profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			sess, err := rt.restore(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s) <%s>\n", sess.User.Name, sess.User.Role, sess.User.Email)
			if sess.Patient != nil {
				fmt.Fprintf(out, "history entries: %d\n", len(sess.Patient.History))
				printTreatments(out, sess.Patient.Treatments)
			}
			if sess.User.Role == api.RoleDoctor {
				fmt.Fprintf(out, "patients on roster: %d\n", len(sess.Roster))
			}
			return nil
		},
	}
}

func patientsCmd() *cobra.Command {
	var cnic string

	cmd := &cobra.Command{
		Use:   "patients",
		Short: "List the patient roster, or look one patient up by national id",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			sess, err := rt.restore(cmd.Context())
			if err != nil {
				return err
			}

			ws := records.NewWorkspace(rt.client, rt.logger)
			ws.SeedDoctor(sess.User, sess.Roster)
			out := cmd.OutOrStdout()

			if cnic != "" {
				patient, err := ws.FindPatient(cnic)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  %s  <%s>\n", patient.CNIC, patient.Name, patient.Email)
				printTreatments(out, patient.Treatments)
				return nil
			}

			for _, p := range sess.Roster {
				fmt.Fprintf(out, "%s  %s  <%s>\n", p.CNIC, p.Name, p.Email)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cnic, "cnic", "", "national id to search for (hyphens optional)")
	return cmd
}

func treatmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "treatment",
		Short: "Create, delete, or export treatment records",
	}
	cmd.AddCommand(treatmentAddCmd())
	cmd.AddCommand(treatmentDeleteCmd())
	cmd.AddCommand(treatmentExportCmd())
	return cmd
}

func treatmentAddCmd() *cobra.Command {
	var patientCNIC, diagnosis, medication, notes string
	var attachments []string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a treatment record for a patient (doctor only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			sess, err := rt.restore(cmd.Context())
			if err != nil {
				return err
			}

			ws := records.NewWorkspace(rt.client, rt.logger)
			ws.SeedDoctor(sess.User, sess.Roster)

			patient, err := ws.FindPatient(patientCNIC)
			if err != nil {
				return err
			}

			files, err := records.LoadAttachments(cmd.Context(), attachments)
			if err != nil {
				return err
			}

			created, err := ws.AddTreatment(cmd.Context(), api.NewTreatment{
				PatientID:  patient.ID,
				Diagnosis:  diagnosis,
				Medication: medication,
				Notes:      notes,
				Files:      files,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "treatment %s created for %s\n", created.ID, patient.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&patientCNIC, "patient", "", "patient national id")
	cmd.Flags().StringVar(&diagnosis, "diagnosis", "", "diagnosis text")
	cmd.Flags().StringVar(&medication, "medication", "", "medication text")
	cmd.Flags().StringVar(&notes, "notes", "", "free-text notes")
	cmd.Flags().StringArrayVar(&attachments, "file", nil, "attachment path (repeatable)")
	return cmd
}

func treatmentDeleteCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete one of your treatment records (patient only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			sess, err := rt.restore(cmd.Context())
			if err != nil {
				return err
			}
			if sess.Patient == nil {
				return fmt.Errorf("only patients can delete treatment records")
			}

			ws := records.NewWorkspace(rt.client, rt.logger)
			ws.SeedPatient(sess.Patient)

			if err := ws.DeleteTreatment(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "treatment %s deleted\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "treatment record id")
	return cmd
}

func treatmentExportCmd() *cobra.Command {
	var id, patientCNIC, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a treatment record as PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			sess, err := rt.restore(cmd.Context())
			if err != nil {
				return err
			}

			var patient *api.PatientProfile
			switch {
			case sess.Patient != nil:
				patient = sess.Patient
			case sess.User.Role == api.RoleDoctor:
				ws := records.NewWorkspace(rt.client, rt.logger)
				ws.SeedDoctor(sess.User, sess.Roster)
				patient, err = ws.FindPatient(patientCNIC)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("no patient context for export")
			}

			var treatment *api.Treatment
			for i := range patient.Treatments {
				if patient.Treatments[i].ID == id {
					treatment = &patient.Treatments[i]
					break
				}
			}
			if treatment == nil {
				return fmt.Errorf("treatment %s not found", id)
			}

			if outPath == "" {
				outPath = fmt.Sprintf("treatment-%s.pdf", id)
			}
			if err := export.WriteFile(outPath, *treatment, *patient); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "treatment record id")
	cmd.Flags().StringVar(&patientCNIC, "patient", "", "patient national id (doctor only)")
	cmd.Flags().StringVar(&outPath, "out", "", "output path (default treatment-<id>.pdf)")
	return cmd
}

func printTreatments(out io.Writer, treatments []api.Treatment) {
	for _, tr := range treatments {
		fmt.Fprintf(out, "  %s  %s  %s / %s\n", tr.ID, tr.CreatedAt.Format("2006-01-02"), tr.Diagnosis, tr.Medication)
	}
}
