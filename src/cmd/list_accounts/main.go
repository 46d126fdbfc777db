package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tradepanel/src/eventmodels"
	"tradepanel/src/eventservices"
	"tradepanel/src/utils"
)

type RunArgs struct {
	GoEnv string
}

type RunResult struct {
	Accounts []eventmodels.AccountDirectoryEntry
}

var runCmd = &cobra.Command{
	Use:   "go run src/cmd/list_accounts/main.go",
	Short: "List the accounts available to the dashboard",
	Run: func(cmd *cobra.Command, args []string) {
		goEnv, err := cmd.Flags().GetString("go-env")
		if err != nil {
			log.Fatalf("error getting go-env: %v", err)
		}

		result, err := Run(RunArgs{
			GoEnv: goEnv,
		})
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Persistent ID", "Transport ID", "Broker", "Max Position Limit"})

		for _, account := range result.Accounts {
			table.Append([]string{
				account.PersistentID,
				account.TransportID,
				account.BrokerName,
				fmt.Sprintf("%.2f", account.MaxPositionLimit),
			})
		}

		table.Render()
	},
}

func Run(args RunArgs) (RunResult, error) {
	projectsDir := os.Getenv("PROJECTS_DIR")
	if projectsDir == "" {
		log.Fatalf("missing PROJECTS_DIR environment variable")
	}

	if err := utils.InitEnvironmentVariables(projectsDir, args.GoEnv); err != nil {
		log.Fatalf("error loading environment variables: %v", err)
	}

	apiBaseURL, err := utils.GetEnv("DASHBOARD_API_BASE_URL")
	if err != nil {
		log.Fatalf("$DASHBOARD_API_BASE_URL not set: %v", err)
	}

	apiToken, err := utils.GetEnv("DASHBOARD_API_TOKEN")
	if err != nil {
		log.Fatalf("$DASHBOARD_API_TOKEN not set: %v", err)
	}

	accounts, err := eventservices.FetchAccounts(apiBaseURL, apiToken)
	if err != nil {
		return RunResult{}, fmt.Errorf("Run: failed to fetch accounts: %w", err)
	}

	return RunResult{Accounts: accounts}, nil
}

func main() {
	runCmd.PersistentFlags().String("go-env", "development", "The go environment to run the command in")

	if err := runCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
