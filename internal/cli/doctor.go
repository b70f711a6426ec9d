package cli

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/config"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/crypto"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/store"
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and database issues",
	Long: `Perform a diagnostic pass over the deployment.

This command checks:
- Configuration file presence and validity
- Encryption key shape and a seal/open round trip
- Session signing secret presence
- SQLite database accessibility and migrations
- Provider OAuth settings

Example:
  ytcompanion doctor`,
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

// DoctorCheck represents a single diagnostic check
type DoctorCheck struct {
	Category    string
	Name        string
	Status      string
	Message     string
	Remediation string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	if globalFlags.Verbose {
		log.Println("Starting diagnostic...")
	}

	checks := []DoctorCheck{systemCheck()}
	checks = append(checks, configChecks()...)

	return printDoctorReport(checks)
}

func systemCheck() DoctorCheck {
	return DoctorCheck{
		Category: "system",
		Name:     "runtime",
		Status:   "ok",
		Message:  fmt.Sprintf("%s %s/%s, %d CPUs", runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.NumCPU()),
	}
}

func configChecks() []DoctorCheck {
	var checks []DoctorCheck

	loader := config.NewLoader(globalFlags.Config)
	cfg, err := loader.Load()
	if err != nil {
		checks = append(checks, DoctorCheck{
			Category:    "config",
			Name:        "load",
			Status:      "fail",
			Message:     err.Error(),
			Remediation: "Create a config.yaml or pass --config with a valid path.",
		})
		return checks
	}
	checks = append(checks, DoctorCheck{
		Category: "config",
		Name:     "load",
		Status:   "ok",
		Message:  fmt.Sprintf("loaded %s", globalFlags.Config),
	})

	checks = append(checks, encryptionCheck(cfg))
	checks = append(checks, sessionCheck(cfg))
	checks = append(checks, databaseCheck(cfg))
	checks = append(checks, providerCheck(cfg))
	checks = append(checks, aiCheck(cfg))

	return checks
}

func encryptionCheck(cfg *config.Config) DoctorCheck {
	key, err := hex.DecodeString(cfg.Security.EncryptionKey)
	if err != nil {
		return DoctorCheck{
			Category:    "security",
			Name:        "encryption_key",
			Status:      "fail",
			Message:     "key is not valid hex",
			Remediation: "Generate one with: openssl rand -hex 32",
		}
	}
	codec, err := crypto.NewCodec(key)
	if err != nil {
		return DoctorCheck{
			Category:    "security",
			Name:        "encryption_key",
			Status:      "fail",
			Message:     err.Error(),
			Remediation: "Generate one with: openssl rand -hex 32",
		}
	}

	sealed, err := codec.Seal("doctor-probe")
	if err == nil {
		var opened string
		opened, err = codec.Open(sealed)
		if err == nil && opened != "doctor-probe" {
			err = fmt.Errorf("round trip mismatch")
		}
	}
	if err != nil {
		return DoctorCheck{
			Category: "security",
			Name:     "encryption_key",
			Status:   "fail",
			Message:  fmt.Sprintf("seal/open round trip failed: %v", err),
		}
	}
	return DoctorCheck{
		Category: "security",
		Name:     "encryption_key",
		Status:   "ok",
		Message:  "32-byte key, round trip verified",
	}
}

func sessionCheck(cfg *config.Config) DoctorCheck {
	if len(cfg.Session.SigningSecret) < 32 {
		return DoctorCheck{
			Category:    "security",
			Name:        "session_secret",
			Status:      "warn",
			Message:     "signing secret is shorter than 32 bytes",
			Remediation: "Use a longer random secret for session signing.",
		}
	}
	return DoctorCheck{
		Category: "security",
		Name:     "session_secret",
		Status:   "ok",
		Message:  "signing secret present",
	}
}

func databaseCheck(cfg *config.Config) DoctorCheck {
	path := cfg.Database.Path
	if path == "" {
		path = globalFlags.DBPath
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return DoctorCheck{
			Category:    "database",
			Name:        "sqlite",
			Status:      "fail",
			Message:     err.Error(),
			Remediation: "Check that the directory exists and is writable.",
		}
	}
	defer s.Close()
	return DoctorCheck{
		Category: "database",
		Name:     "sqlite",
		Status:   "ok",
		Message:  fmt.Sprintf("opened and migrated %s", path),
	}
}

func providerCheck(cfg *config.Config) DoctorCheck {
	if cfg.Provider.ClientID == "" || cfg.Provider.ClientSecret == "" {
		return DoctorCheck{
			Category:    "provider",
			Name:        "oauth",
			Status:      "fail",
			Message:     "client id or secret missing",
			Remediation: "Create OAuth credentials in the Google Cloud console and set provider.client_id / provider.client_secret.",
		}
	}
	if cfg.Provider.RedirectURL == "" {
		return DoctorCheck{
			Category:    "provider",
			Name:        "oauth",
			Status:      "fail",
			Message:     "redirect url missing",
			Remediation: "Set provider.redirect_url to the /auth/callback URL registered with the provider.",
		}
	}
	return DoctorCheck{
		Category: "provider",
		Name:     "oauth",
		Status:   "ok",
		Message:  "client credentials and redirect url present",
	}
}

func aiCheck(cfg *config.Config) DoctorCheck {
	if cfg.AI.APIKey == "" {
		return DoctorCheck{
			Category: "ai",
			Name:     "generation",
			Status:   "warn",
			Message:  "no api key, AI routes will return an error",
		}
	}
	return DoctorCheck{
		Category: "ai",
		Name:     "generation",
		Status:   "ok",
		Message:  fmt.Sprintf("configured, model %s", cfg.AI.Model),
	}
}

func printDoctorReport(checks []DoctorCheck) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "CATEGORY\tCHECK\tSTATUS\tMESSAGE\n")
	failed := false
	for _, check := range checks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", check.Category, check.Name, check.Status, check.Message)
		if check.Remediation != "" {
			fmt.Fprintf(w, "\t\t\t→ %s\n", check.Remediation)
		}
		if check.Status == "fail" {
			failed = true
		}
	}
	fmt.Fprintf(w, "\nchecked at %s\n", time.Now().UTC().Format(time.RFC3339))
	if err := w.Flush(); err != nil {
		return err
	}
	if failed {
		return fmt.Errorf("one or more checks failed")
	}
	return nil
}
