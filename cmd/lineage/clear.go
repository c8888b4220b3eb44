// Clear command for the lineage CLI.
// See docs/ARCHITECTURE § CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all graph rows for the selected resource",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openConnection()
		if err != nil {
			fmt.Fprintln(os.Stderr, "clear:", err)
			os.Exit(exitSysError)
		}
		defer conn.Close()

		if err := conn.Clear(); err != nil {
			fmt.Fprintln(os.Stderr, "clear:", err)
			os.Exit(exitSysError)
		}

		fmt.Println("Cleared resource", conn.Resource())
		return nil
	},
}
