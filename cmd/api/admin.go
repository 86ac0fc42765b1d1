package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harentsoaR/clinic-api/internal/config"
	"github.com/harentsoaR/clinic-api/internal/directory"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/store"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

// createAdminCmd bootstraps the first admin account. Admins cannot be created over HTTP.
func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			fullName, _ := cmd.Flags().GetString("full-name")
			phone, _ := cmd.Flags().GetString("phone")
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if username == "" || email == "" || len(password) < 8 {
				return errors.New("--username, --email and a password of at least 8 characters are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			hash, err := utils.NewPasswordHasher(cfg.BcryptCost).HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			admin := &models.User{
				Username: username,
				Email:    strings.ToLower(strings.TrimSpace(email)),
				Password: hash,
				FullName: fullName,
				Phone:    phone,
				Role:     models.RoleAdmin,
			}
			err = st.WithTx(ctx, func(tx *store.Store) error {
				taken, err := tx.IdentityTaken(ctx, admin.Username, admin.Email, admin.Phone)
				if err != nil {
					return err
				}
				if taken {
					return store.ErrDuplicateIdentity
				}
				return tx.CreateUser(ctx, admin)
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created admin %q (id %d).\n", admin.Username, admin.ID)
			return nil
		},
	}
	cmd.Flags().String("username", "", "Login name")
	cmd.Flags().String("email", "", "Email address")
	cmd.Flags().String("password", "", "Password (defaults to $ADMIN_PASSWORD)")
	cmd.Flags().String("full-name", "Administrator", "Display name")
	cmd.Flags().String("phone", "", "Phone number")
	return cmd
}

// patientsCmd runs the directory filter against the database, printing a table or writing
// a spreadsheet.
func patientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "List or export patients using the directory filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			search, _ := cmd.Flags().GetString("search")
			xlsxPath, _ := cmd.Flags().GetString("xlsx")
			f := directory.NoFilter()
			f.Gender, _ = cmd.Flags().GetString("gender")
			f.BloodGroup, _ = cmd.Flags().GetString("blood-group")
			f.AgeGroup, _ = cmd.Flags().GetString("age-group")
			f.HasConditions, _ = cmd.Flags().GetString("has-conditions")
			f.RegistrationPeriod, _ = cmd.Flags().GetString("registered")
			if err := f.Validate(); err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			all, err := st.ListCustomers(ctx)
			if err != nil {
				return err
			}
			now := time.Now()
			patients := directory.Apply(all, search, f, now)

			if xlsxPath != "" {
				out, err := os.Create(xlsxPath)
				if err != nil {
					return err
				}
				if err := directory.WriteXLSX(out, patients, now); err != nil {
					out.Close()
					return err
				}
				if err := out.Close(); err != nil {
					return err
				}
				fmt.Printf("Wrote %d of %d patients to %s.\n", len(patients), len(all), xlsxPath)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tGENDER\tBLOOD\tAGE GROUP\tREGISTERED")
			for _, p := range patients {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.FullName, p.Email, p.Gender,
					p.BloodGroup, directory.AgeGroup(p.DateOfBirth, now), p.CreatedAt.Format("2006-01-02"))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			stats := directory.Summarize(all, now)
			fmt.Printf("\n%d shown, %d total, %d new this month\n", len(patients), stats.Total, stats.NewThisMonth)
			return nil
		},
	}
	cmd.Flags().String("search", "", "Match name, email or phone")
	cmd.Flags().String("gender", directory.All, "Gender")
	cmd.Flags().String("blood-group", directory.All, "Blood group")
	cmd.Flags().String("age-group", directory.All, "0-18, 19-30, 31-50 or 51+")
	cmd.Flags().String("has-conditions", directory.All, "yes or no")
	cmd.Flags().String("registered", directory.All, "last-week, last-month, last-3-months or last-year")
	cmd.Flags().String("xlsx", "", "Write the result to this spreadsheet instead of printing it")
	return cmd
}
