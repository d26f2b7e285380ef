package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/performance-management/internal/guard"
)

// routesCmd prints the navigation ruleset so operators can confirm which
// role owns which namespace without reading code.
var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the role-to-route access rules",
	Run: func(cmd *cobra.Command, args []string) {
		printRoutes()
	},
}

func printRoutes() {
	rules := guard.DefaultRuleset()

	fmt.Println("Role routes:")
	for _, rule := range rules.Rules() {
		fmt.Printf("  %-10s landing=%-12s allowed=%s/*\n", rule.Role, rule.LandingPath, rule.AllowedPrefix)
	}

	fmt.Println("Shared routes (any authenticated role):")
	for _, shared := range rules.SharedPrefixes() {
		fmt.Printf("  %s/*\n", shared)
	}

	fmt.Printf("Sign-in path: %s\n", rules.SignInPath())
}
