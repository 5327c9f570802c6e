package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/mediavault/internal/models"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the vault and set its password",
	Long: `Setup derives the vault key from a new password and initializes the
encrypted store. The password is never written to disk; only a
key-check value survives for later verification.`,
	RunE: runSetup,
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the vault password",
	Long: `Passwd re-wraps the vault's master key under a key derived from the
new password. Stored items are not re-encrypted.`,
	RunE: runPasswd,
}

func init() {
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(passwdCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	if vaultApp.Keyring.IsConfigured() {
		return fmt.Errorf("vault already configured; use 'mediavault passwd' to change the password")
	}

	password, err := promptNewPassword("New vault password: ")
	if err != nil {
		return err
	}

	if err := vaultApp.Keyring.SetupPassword(password); err != nil {
		if errors.Is(err, models.ErrWeakPassword) {
			return fmt.Errorf("password must be at least %d characters with a letter and a digit",
				cfg.Vault.MinPasswordLength)
		}
		return err
	}

	printSuccess("Vault created at %s", cfg.Storage.DataDir)
	return nil
}

func runPasswd(cmd *cobra.Command, args []string) error {
	if !vaultApp.Keyring.IsConfigured() {
		return fmt.Errorf("no vault configured; run 'mediavault setup' first")
	}

	oldPassword, err := promptPassword("Current password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	newPassword, err := promptNewPassword("New password: ")
	if err != nil {
		return err
	}

	if err := vaultApp.Keyring.ChangePassword(oldPassword, newPassword); err != nil {
		if errors.Is(err, models.ErrWeakPassword) {
			return fmt.Errorf("password must be at least %d characters with a letter and a digit",
				cfg.Vault.MinPasswordLength)
		}
		return err
	}

	printSuccess("Password changed")
	return nil
}

func promptNewPassword(prompt string) (string, error) {
	password, err := promptPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if password != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}
