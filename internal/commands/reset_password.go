package commands

import (
	"fmt"
	"os"

	"hubdeck/internal/constants"
	"hubdeck/internal/database"
	"hubdeck/internal/logger"
	"hubdeck/internal/webconfig"

	"golang.org/x/crypto/bcrypt"
)

func ResetPassword(args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: hubdeck reset-password <username> <new-password>")
		return 2
	}

	cfg, err := webconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	logger.Init(cfg.Log)

	if err := database.Init(cfg.Database, false); err != nil {
		fmt.Fprintf(os.Stderr, "database init failed: %v\n", err)
		return 1
	}
	defer database.Close()

	if err := resetPassword(args[0], args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Printf("password for %s has been reset\n", args[0])
	return 0
}

// resetPassword also clears any lockout on the account.
func resetPassword(username, password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	repo := database.NewUserRepo()
	user, err := repo.FindByUsername(username)
	if err != nil {
		return fmt.Errorf("user %s not found", username)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := repo.UpdatePassword(user.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	_ = database.NewAuditLogRepo().Create(&database.AuditLog{
		UserID:   user.ID,
		Username: "cli",
		Action:   constants.ActionPasswordReset,
		Detail:   "password reset for " + username,
		Result:   "success",
	})
	return nil
}
