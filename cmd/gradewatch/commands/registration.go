package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var registrationCmd = &cobra.Command{
	Use:   "registration",
	Short: "Fetch the registration status once.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := loggedIn(cmd.Context())
		if err != nil {
			return err
		}
		status, err := a.Client().FetchRegistration(cmd.Context())
		if err != nil {
			return err
		}

		code := "missing"
		if status.ResponseCode != nil {
			code = fmt.Sprint(*status.ResponseCode)
		}
		state := "closed"
		if status.Open() {
			state = "open"
		}

		t := newTable("Registration", "Response code", "Checked at")
		t.AppendRow([]any{state, code, a.Clock().Now().Format("2006-01-02 15:04:05 MST")})
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registrationCmd)
}
