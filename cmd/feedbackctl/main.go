// Package main provides an operator CLI for the feedback server.
//
// It shares configuration with the server (-name=value flags before the
// command, the environment and .env) and works directly against the database.
//
// Usage:
//
//	feedbackctl create-admin -email ops@example.com -password '...'
//	feedbackctl create-survey -title "CSC Conference 2026" -activate
//	feedbackctl import-contacts -file contacts.csv
//	feedbackctl send -type delegate
//	feedbackctl export -out invitations.csv
//	feedbackctl check-token <token>
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/samber/do/v2"

	"github.com/feedbackapp/feedback-server/internal/di"
	"github.com/feedbackapp/feedback-server/internal/di/providers"
	"github.com/feedbackapp/feedback-server/internal/domain"
	"github.com/feedbackapp/feedback-server/internal/logger"
	"github.com/feedbackapp/feedback-server/internal/service"
	"github.com/feedbackapp/feedback-server/internal/session"
)

// sendChunk matches the largest batch SendBatch accepts.
const sendChunk = 1000

type command struct {
	summary string
	run     func(ctx context.Context, inj do.Injector, args []string) error
}

var commands = map[string]command{
	"create-admin":    {"Create an organizer account", runCreateAdmin},
	"create-survey":   {"Create a survey from a registered definition", runCreateSurvey},
	"list-surveys":    {"List surveys", runListSurveys},
	"activate":        {"Make a survey the active one", runActivate},
	"import-contacts": {"Upsert contacts from a CSV or JSON file", runImportContacts},
	"send":            {"Issue and mail invitations for the active survey", runSend},
	"export":          {"Write the invitation CSV for a survey", runExport},
	"check-token":     {"Show the session state behind a magic link token", runCheckToken},
}

func main() {
	// Global flags come before the command and are read by the config loader.
	args := os.Args[1:]
	i := 0
	for i < len(args) && len(args[i]) > 0 && args[i][0] == '-' {
		i++
	}
	if i >= len(args) {
		usage()
		os.Exit(2)
	}

	cmd, ok := commands[args[i]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[i])
		usage()
		os.Exit(2)
	}

	injector := di.NewContainer()
	// Keep stdout clean for command output such as CSV exports.
	do.OverrideValue(injector, logger.New(logger.Config{
		Writer: os.Stderr,
		Format: "pretty",
		Level:  slog.LevelWarn,
	}))
	defer injector.Shutdown() //nolint:errcheck // best effort on exit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := cmd.run(ctx, injector, args[i+1:]); err != nil {
		log.Printf("%s: %v", args[i], err)
		injector.Shutdown() //nolint:errcheck // exiting
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: feedbackctl [config flags] <command> [command flags]")
	fmt.Fprintln(os.Stderr, "\ncommands:")
	for _, name := range []string{"create-admin", "create-survey", "list-surveys", "activate", "import-contacts", "send", "export", "check-token"} {
		fmt.Fprintf(os.Stderr, "  %-16s %s\n", name, commands[name].summary)
	}
}

func invoke[T any](inj do.Injector) T {
	v, err := do.Invoke[T](inj)
	if err != nil {
		log.Fatalf("initialize: %v", err)
	}
	return v
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runCreateAdmin(ctx context.Context, inj do.Injector, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	email := fs.String("email", "", "Admin email (required)")
	name := fs.String("name", "", "Display name")
	password := fs.String("password", "", "Password, at least 8 characters (required)")
	_ = fs.Parse(args)

	admin, err := invoke[*service.AuthService](inj).CreateAdmin(ctx, service.CreateAdminRequest{
		Email:    *email,
		Name:     *name,
		Password: *password,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Created admin %s (%s)\n", admin.Email, admin.ID)
	return nil
}

func runCreateSurvey(ctx context.Context, inj do.Injector, args []string) error {
	fs := flag.NewFlagSet("create-survey", flag.ExitOnError)
	title := fs.String("title", "", "Survey title (required)")
	slug := fs.String("slug", "", "URL slug (default: from title)")
	description := fs.String("description", "", "Description")
	definition := fs.String("definition", "", "Definition id (default: built-in)")
	activate := fs.Bool("activate", false, "Activate after creating")
	_ = fs.Parse(args)

	surveys := invoke[*service.SurveyService](inj)
	survey, err := surveys.Create(ctx, service.CreateSurveyRequest{
		Title:       *title,
		Slug:        *slug,
		Description: *description,
		Definition:  *definition,
	})
	if err != nil {
		return err
	}
	if *activate {
		if survey, err = surveys.Activate(ctx, survey.ID); err != nil {
			return err
		}
	}
	return printJSON(survey)
}

func runListSurveys(ctx context.Context, inj do.Injector, _ []string) error {
	list, err := invoke[*service.SurveyService](inj).List(ctx)
	if err != nil {
		return err
	}
	for _, s := range list {
		fmt.Printf("%s\t%s\t%s\t%s\n", s.ID, s.Status, s.Slug, s.Title)
	}
	return nil
}

func runActivate(ctx context.Context, inj do.Injector, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: activate <survey-id>")
	}
	survey, err := invoke[*service.SurveyService](inj).Activate(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Activated %s (%s)\n", survey.Title, survey.ID)
	return nil
}

func runImportContacts(ctx context.Context, inj do.Injector, args []string) error {
	fs := flag.NewFlagSet("import-contacts", flag.ExitOnError)
	file := fs.String("file", "", "CSV or JSON contacts file (required)")
	_ = fs.Parse(args)

	f, err := os.Open(*file) //#nosec G304 -- operator supplied path
	if err != nil {
		return err
	}
	defer f.Close()

	contacts, err := parseContacts(f, *file)
	if err != nil {
		return err
	}

	n, err := invoke[*service.InvitationService](inj).ImportContacts(ctx, service.ImportContactsRequest{Contacts: contacts})
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d contacts\n", n)
	return nil
}

func runSend(ctx context.Context, inj do.Injector, args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	pt := fs.String("type", "", "Only contacts of this participant type (delegate, exhibitor)")
	resend := fs.Bool("resend", false, "Also re-mail contacts that were already invited")
	subject := fs.String("subject", "", "Email subject (default: built-in)")
	message := fs.String("message", "", "Email body (default: per participant type)")
	dryRun := fs.Bool("dry-run", false, "List recipients without sending")
	_ = fs.Parse(args)

	participantType := domain.ParticipantType(*pt)
	if participantType != "" && !participantType.Valid() {
		return fmt.Errorf("unknown participant type %q", *pt)
	}

	invitations := invoke[*service.InvitationService](inj)
	entries, err := invitations.ListDistribution(ctx, participantType)
	if err != nil {
		return err
	}

	var ids []string
	for _, e := range entries {
		if e.RespondedAt != nil {
			continue
		}
		if e.Status != service.DistributionStatusNotSent && !*resend {
			continue
		}
		if *dryRun {
			fmt.Printf("%s\t%s\t%s\n", e.ContactID, e.ParticipantType, e.Email)
		}
		ids = append(ids, e.ContactID)
	}
	if *dryRun || len(ids) == 0 {
		fmt.Printf("%d recipients\n", len(ids))
		return nil
	}

	total := service.BatchResult{}
	for start := 0; start < len(ids); start += sendChunk {
		end := min(start+sendChunk, len(ids))
		res, err := invitations.SendBatch(ctx, service.SendBatchRequest{
			ContactIDs: ids[start:end],
			Subject:    *subject,
			Message:    *message,
		})
		if err != nil {
			return err
		}
		total.Success += res.Success
		total.Failed += res.Failed
		total.Errors = append(total.Errors, res.Errors...)
	}
	return printJSON(total)
}

func runExport(ctx context.Context, inj do.Injector, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	surveyID := fs.String("survey", "", "Survey id (default: active survey)")
	out := fs.String("out", "", "Output file (default: stdout)")
	_ = fs.Parse(args)

	id := *surveyID
	if id == "" {
		active, err := invoke[*service.SurveyService](inj).Active(ctx)
		if err != nil {
			return err
		}
		id = active.ID
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out) //#nosec G304 -- operator supplied path
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	n, err := invoke[*service.ExportService](inj).WriteInvitationsCSV(ctx, w, id)
	if err != nil {
		return err
	}
	if *out != "" {
		fmt.Printf("Wrote %d invitations to %s\n", n, *out)
	}
	return nil
}

// runCheckToken reports the session state without marking the invitation opened.
func runCheckToken(ctx context.Context, inj do.Injector, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: check-token <token>")
	}
	st := invoke[*providers.StoreHandle](inj)

	inv, err := st.GetInvitationByToken(ctx, args[0])
	if err != nil {
		return err
	}
	survey, err := st.GetSurvey(ctx, inv.SurveyID)
	if err != nil {
		return err
	}

	state := session.Classify(inv, survey, time.Now().UTC())
	fmt.Printf("invitation %s (%s, %s)\n", inv.ID, inv.Email, inv.ParticipantType)
	fmt.Printf("survey     %s (%s)\n", survey.Title, survey.Status)
	fmt.Printf("state      %s\n", state.Kind)
	if state.Kind == session.InProgress {
		fmt.Printf("page       %d\n", state.Page)
	}
	fmt.Printf("expires    %s\n", inv.ExpiresAt.Format(time.RFC3339))
	return nil
}
