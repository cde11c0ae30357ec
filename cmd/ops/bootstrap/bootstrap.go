package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"sort"

	"github.com/joho/godotenv"
)

// Step is one variable the tool checks. Required steps fail the run when
// missing; optional ones are reported and skipped.
type Step struct {
	Key        string
	Label      string
	Required   bool
	ValidateFn func(ctx context.Context, value string) ValidationResult
}

// BuildInventory lists the variables in the order they are checked.
func BuildInventory(v *Validator) []Step {
	return []Step{
		{Key: "DATABASE_URL", Label: "Database URL", Required: true, ValidateFn: v.ValidateDatabaseURL},
		{Key: "YOUTUBE_OAUTH_CLIENTS", Label: "OAuth client pool", Required: true, ValidateFn: v.ValidateOAuthClients},
		{Key: "CREDENTIAL_KEY", Label: "Credential key", Required: true, ValidateFn: v.ValidateCredentialKey},
		{Key: "SESSION_SECRET", Label: "Session secret", Required: true},
		{Key: "FIREBASE_PROJECT_ID", Label: "Firebase project", Required: true},
		{Key: "ADMIN_UID", Label: "Admin uid", Required: true},
		{Key: "PUBLIC_URL", Label: "Public URL", Required: true},
		{Key: "DASHBOARD_URL", Label: "Dashboard URL", Required: true},
		{Key: "YOUTUBE_API_KEY", Label: "YouTube API key", ValidateFn: v.ValidateYouTubeAPIKey},
		{Key: "STRIPE_SECRET_KEY", Label: "Stripe secret key", ValidateFn: v.ValidateStripeKey},
		{Key: "STRIPE_WEBHOOK_SECRET", Label: "Stripe webhook secret"},
		{Key: "PAYMENT_WEBHOOK_SECRET", Label: "Payment webhook secret"},
		{Key: "REDIS_URL", Label: "Redis URL"},
	}
}

// Runner merges an existing .env with the process environment, generates
// missing internal secrets, validates everything and writes the result.
type Runner struct {
	Path      string
	Steps     []Step
	LookupEnv func(string) (string, bool)
	Out       io.Writer
	// DryRun reports without writing the file.
	DryRun bool
}

type stepResult struct {
	step   Step
	status string
	detail string
}

// LoadEnv reads path when it exists and overlays any inventory variable set
// in the process environment.
func (r *Runner) LoadEnv() (map[string]string, error) {
	env, err := godotenv.Read(r.Path)
	if errors.Is(err, fs.ErrNotExist) {
		env = map[string]string{}
	} else if err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.Path, err)
	}
	lookup := r.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, s := range r.Steps {
		if v, ok := lookup(s.Key); ok && v != "" {
			env[s.Key] = v
		}
	}
	return env, nil
}

// Run executes the bootstrap and returns an error when any required value
// is missing or invalid. The file is written only on success.
func (r *Runner) Run(ctx context.Context) error {
	env, err := r.LoadEnv()
	if err != nil {
		return err
	}
	generated, err := GenerateInternalSecrets(env)
	if err != nil {
		return err
	}

	var (
		results []stepResult
		failed  int
	)
	for _, s := range r.Steps {
		res := r.check(ctx, s, env[s.Key])
		if slices.Contains(generated, s.Key) && res.status == "ok" {
			res.status = "generated"
		}
		if res.status == "invalid" || res.status == "missing" {
			failed++
		}
		results = append(results, res)
	}
	r.printSummary(results)

	if failed > 0 {
		return fmt.Errorf("%d required value(s) missing or invalid", failed)
	}
	if r.DryRun {
		return nil
	}
	if err := godotenv.Write(env, r.Path); err != nil {
		return fmt.Errorf("writing %s: %w", r.Path, err)
	}
	fmt.Fprintf(r.Out, "\nwrote %d variable(s) to %s\n", len(env), r.Path)
	return nil
}

func (r *Runner) check(ctx context.Context, s Step, value string) stepResult {
	switch {
	case value == "" && s.Required:
		return stepResult{step: s, status: "missing"}
	case value == "":
		return stepResult{step: s, status: "skipped"}
	case s.ValidateFn == nil:
		return stepResult{step: s, status: "ok"}
	}
	res := s.ValidateFn(ctx, value)
	if !res.Valid {
		// A set optional value that is wrong still blocks the run.
		return stepResult{step: s, status: "invalid", detail: res.Message}
	}
	return stepResult{step: s, status: "ok", detail: res.Message}
}

func (r *Runner) printSummary(results []stepResult) {
	counts := map[string]int{}
	for _, res := range results {
		counts[res.status]++
		line := fmt.Sprintf("  [%-9s] %-24s %s", res.status, res.step.Label, res.step.Key)
		if res.detail != "" {
			line += ": " + res.detail
		}
		fmt.Fprintln(r.Out, line)
	}

	statuses := make([]string, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	fmt.Fprint(r.Out, "\nsummary:")
	for _, s := range statuses {
		fmt.Fprintf(r.Out, " %s=%d", s, counts[s])
	}
	fmt.Fprintln(r.Out)
}
