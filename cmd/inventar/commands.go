package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/erazemk/inventar/internal/activity"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/seed"
	"github.com/erazemk/inventar/internal/users"
)

func newInitCmd(c *cli) *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the first Super Admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			password, err := generatePassword(16)
			if err != nil {
				return fmt.Errorf("generating password: %w", err)
			}
			u, err := a.Users.Bootstrap(ctx, name, email, password)
			if err != nil {
				return fmt.Errorf("creating admin user: %w", err)
			}
			printInitResult(cmd.OutOrStdout(), describeStore(a.Config), u.Email, password)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Admin", "account name")
	cmd.Flags().StringVar(&email, "email", "admin@localhost", "account email")
	return cmd
}

func newSeedCmd(c *cli) *cobra.Command {
	var file string
	var force bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load sample categories, items and users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := loadSeed(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			err = seed.Apply(ctx, a.Repo, a.Activity, data, seed.Options{
				Force:    force,
				HashCost: c.cfg.Auth.BcryptCost,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d categories, %d items and %d users.\n",
				len(data.Categories), len(data.Items), len(data.Users))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file (default: built-in sample data)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing data")
	return cmd
}

func loadSeed(path string) (*seed.Data, error) {
	if path == "" {
		return seed.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return seed.Load(f)
}

func newDueCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "List borrowed items that are due or overdue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.Due.List(ctx)
			if err != nil {
				return err
			}
			renderDue(cmd.OutOrStdout(), items)
			return nil
		},
	}
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	overdueStyle = cellStyle.Foreground(lipgloss.Color("9"))
	todayStyle   = cellStyle.Foreground(lipgloss.Color("11"))
)

// renderDue writes items as a table. Overdue rows are red, rows due today
// are yellow.
func renderDue(w io.Writer, items []model.DueItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "Nothing is due.")
		return
	}

	rows := make([][]string, 0, len(items))
	for _, d := range items {
		rows = append(rows, []string{
			d.ItemName,
			d.BorrowerName,
			strconv.Itoa(d.QuantityDue),
			d.ReturnDate.Format("2006-01-02"),
			dueLabel(d.DaysRemaining),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ITEM", "BORROWER", "QTY", "RETURN BY", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case items[row].DaysRemaining < 0:
				return overdueStyle
			case items[row].DaysRemaining == 0:
				return todayStyle
			default:
				return cellStyle
			}
		})
	fmt.Fprintln(w, t.Render())
}

func dueLabel(days int) string {
	switch {
	case days < -1:
		return fmt.Sprintf("%d days overdue", -days)
	case days == -1:
		return "1 day overdue"
	case days == 0:
		return "due today"
	case days == 1:
		return "1 day left"
	default:
		return fmt.Sprintf("%d days left", days)
	}
}

func newUserCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var in users.Input
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an active account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			generated := in.Password == ""
			if generated {
				p, err := generatePassword(16)
				if err != nil {
					return fmt.Errorf("generating password: %w", err)
				}
				in.Password = p
			}

			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.Users.Create(asOperator(ctx), in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s (%s) as %s.\n", u.Email, u.ID, u.Role)
			if generated {
				fmt.Fprintf(out, "  Password: %s\n", in.Password)
			}
			return nil
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "full name")
	create.Flags().StringVar(&in.Email, "email", "", "email address")
	create.Flags().StringVar(&in.Password, "password", "", "password (generated when empty)")
	create.Flags().StringVar(&in.Role, "role", model.RoleMember, "role")
	create.MarkFlagRequired("name")
	create.MarkFlagRequired("email")

	cmd.AddCommand(create)
	return cmd
}

// asOperator runs CLI changes with Super Admin rights under the system name.
func asOperator(ctx context.Context) context.Context {
	return activity.WithActor(ctx, activity.Actor{
		Name: activity.SystemName,
		Role: model.RoleSuperAdmin,
	})
}

// printInitResult prints the created account to w.
func printInitResult(w io.Writer, storage, email, password string) {
	fmt.Fprintf(w, "Store ready: %s\n", storage)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Super Admin account created:")
	fmt.Fprintf(w, "  Email:    %s\n", email)
	fmt.Fprintf(w, "  Password: %s\n", password)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Save this password, it cannot be recovered.")
	fmt.Fprintln(w, "It can be changed after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
