package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"inventory-backend/internal/platform/auth"
)

var useraddOpts struct {
	password  string
	email     string
	firstName string
	lastName  string
	role      string
}

// 最初の管理者は API から作れないのでここで作る
var useraddCmd = &cobra.Command{
	Use:   "useradd <username>",
	Short: "Create an account (e.g. the first admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(useraddOpts.password) < 8 {
			return errors.New("--password must be at least 8 characters")
		}

		cfg, conn, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()

		svc := auth.NewService(conn, []byte(cfg.Auth.JWTSecret))
		acct, err := svc.Register(cmd.Context(), auth.RegisterInput{
			Username:  args[0],
			Password:  useraddOpts.password,
			Email:     useraddOpts.email,
			FirstName: useraddOpts.firstName,
			LastName:  useraddOpts.lastName,
			Role:      useraddOpts.role,
		})
		if err != nil {
			return fmt.Errorf("useradd %s: %w", args[0], err)
		}
		log.Printf("[INFO] created user %s (id=%d, role=%s)", acct.Username, acct.UserID, acct.Role)
		return nil
	},
}

func init() {
	f := useraddCmd.Flags()
	f.StringVarP(&useraddOpts.password, "password", "p", "", "password (min 8 characters)")
	f.StringVar(&useraddOpts.email, "email", "", "e-mail address")
	f.StringVar(&useraddOpts.firstName, "first-name", "", "first name")
	f.StringVar(&useraddOpts.lastName, "last-name", "", "last name")
	f.StringVar(&useraddOpts.role, "role", auth.RoleAdmin, "admin | staff | user")
	_ = useraddCmd.MarkFlagRequired("password")
}
