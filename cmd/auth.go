package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/quorumhq/nameplate/credentials"
)

// NewAuthCommand creates the auth command for managing the inference API key.
func NewAuthCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the inference provider API key",
		Long: `Manage the API key used for generative inference.

The key is stored in the system keyring. The NAMEPLATE_API_KEY environment
variable overrides the stored key, which is the usual route in CI.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set-key [key]",
		Short: "Store the API key in the system keyring",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				var err error
				key, err = readSecret("API key: ")
				if err != nil {
					return err
				}
			}
			if err := credentials.SetAPIKey(key); err != nil {
				return err
			}
			fmt.Fprintln(deps.Out, "API key stored.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the stored API key (masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := credentials.APIKey()
			if err != nil {
				return err
			}
			source := "keyring"
			if os.Getenv(credentials.EnvAPIKey) != "" {
				source = credentials.EnvAPIKey
			}
			fmt.Fprintf(deps.Out, "%s (from %s)\n", credentials.Mask(key), source)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the API key from the system keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credentials.DeleteAPIKey(); err != nil {
				return err
			}
			fmt.Fprintln(deps.Out, "API key removed.")
			return nil
		},
	})

	return cmd
}

// readSecret prompts for a secret without echoing when on a terminal.
func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}
