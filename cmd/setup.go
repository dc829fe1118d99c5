package cmd

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"graphdrop/internal/config"
	"graphdrop/internal/security"
	"graphdrop/internal/snowflake"
	"graphdrop/internal/ui"
	"graphdrop/pkg/models"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Initial configuration setup",
	Run:   runSetup,
}

func runSetup(cmd *cobra.Command, args []string) {
	fmt.Println("Setting up GraphDrop CLI...")
	fmt.Println()

	if config.Exists() {
		var overwrite bool
		prompt := &survey.Confirm{
			Message: "Configuration already exists. Do you want to overwrite it?",
			Default: false,
		}
		survey.AskOne(prompt, &overwrite)
		if !overwrite {
			fmt.Println("Setup cancelled.")
			return
		}
	}

	cfg := &models.Config{}

	fmt.Println("Snowflake Connection")
	fmt.Println("--------------------")

	snowflakeQs := []*survey.Question{
		{
			Name: "account",
			Prompt: &survey.Input{
				Message: "Snowflake Account (e.g., xy12345.us-east-1):",
			},
			Validate: survey.Required,
		},
		{
			Name: "username",
			Prompt: &survey.Input{
				Message: "Username:",
			},
			Validate: survey.Required,
		},
		{
			Name: "password",
			Prompt: &survey.Password{
				Message: "Password:",
			},
			Validate: survey.Required,
		},
		{
			Name: "role",
			Prompt: &survey.Input{
				Message: "Role:",
				Default: "ACCOUNTADMIN",
			},
			Validate: survey.Required,
		},
		{
			Name: "warehouse",
			Prompt: &survey.Input{
				Message: "Warehouse:",
				Default: "COMPUTE_WH",
			},
			Validate: survey.Required,
		},
		{
			Name: "database",
			Prompt: &survey.Input{
				Message: "Database:",
			},
			Validate: survey.Required,
		},
		{
			Name: "schema",
			Prompt: &survey.Input{
				Message: "Schema:",
				Default: "PUBLIC",
			},
			Validate: survey.Required,
		},
	}

	if err := survey.Ask(snowflakeQs, &cfg.Snowflake); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	var testNow bool
	survey.AskOne(&survey.Confirm{
		Message: "Test the connection now?",
		Default: true,
	}, &testNow)

	if testNow {
		if sfConfig, err := snowflakeConfig(cfg.Snowflake); err == nil {
			service := snowflake.NewService(sfConfig)
			spinner := ui.NewSpinner("Testing connection...")
			spinner.Start()
			if err := service.TestConnection(); err != nil {
				spinner.Stop(false, "Connection test failed")
				ui.ShowWarning(fmt.Sprintf("Continuing setup; fix the connection later: %v", err))
			} else {
				spinner.Stop(true, "Connection verified")
				service.Close()
			}
		}
	}

	var useKeychain bool
	survey.AskOne(&survey.Confirm{
		Message: "Store the password in the system keychain instead of the config file?",
		Default: false,
	}, &useKeychain)

	if useKeychain {
		manager, err := security.NewCredentialManager()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		err = manager.StoreCredential(security.PasswordCredential, "password", cfg.Snowflake.Password,
			map[string]string{"account": cfg.Snowflake.Account, "username": cfg.Snowflake.Username})
		if err != nil {
			fmt.Printf("Error storing credential: %v\n", err)
			os.Exit(1)
		}
		cfg.Snowflake.Password = ""
	}

	fmt.Println()
	fmt.Println("Transaction Pipeline")
	fmt.Println("--------------------")

	pipelineQs := []*survey.Question{
		{
			Name: "transactiontable",
			Prompt: &survey.Input{
				Message: "Transaction table:",
				Default: "P2P_TRANSACTIONS",
			},
			Validate: survey.Required,
		},
		{
			Name: "sourcecolumn",
			Prompt: &survey.Input{
				Message: "Source entity column:",
				Default: "SOURCE_ID",
			},
			Validate: survey.Required,
		},
		{
			Name: "targetcolumn",
			Prompt: &survey.Input{
				Message: "Target entity column:",
				Default: "TARGET_ID",
			},
			Validate: survey.Required,
		},
		{
			Name: "amountcolumn",
			Prompt: &survey.Input{
				Message: "Amount column:",
				Default: "AMOUNT",
			},
			Validate: survey.Required,
		},
		{
			Name: "entitytable",
			Prompt: &survey.Input{
				Message: "Entity table:",
				Default: "P2P_USERS",
			},
			Validate: survey.Required,
		},
		{
			Name: "entitycolumn",
			Prompt: &survey.Input{
				Message: "Entity id column:",
				Default: "ID",
			},
			Validate: survey.Required,
		},
		{
			Name: "edgetable",
			Prompt: &survey.Input{
				Message: "Aggregated edge table to create:",
				Default: "P2P_AGG_TRANSACTIONS",
			},
			Validate: survey.Required,
		},
		{
			Name: "nodeview",
			Prompt: &survey.Input{
				Message: "Node view to create:",
				Default: "P2P_USERS_VW",
			},
			Validate: survey.Required,
		},
	}

	answers := struct {
		TransactionTable string `survey:"transactiontable"`
		SourceColumn     string `survey:"sourcecolumn"`
		TargetColumn     string `survey:"targetcolumn"`
		AmountColumn     string `survey:"amountcolumn"`
		EntityTable      string `survey:"entitytable"`
		EntityColumn     string `survey:"entitycolumn"`
		EdgeTable        string `survey:"edgetable"`
		NodeView         string `survey:"nodeview"`
	}{}

	if err := survey.Ask(pipelineQs, &answers); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	cfg.Pipeline = models.Pipeline{
		TransactionTable: answers.TransactionTable,
		SourceColumn:     answers.SourceColumn,
		TargetColumn:     answers.TargetColumn,
		AmountColumn:     answers.AmountColumn,
		EntityTable:      answers.EntityTable,
		EntityColumn:     answers.EntityColumn,
		EdgeTable:        answers.EdgeTable,
		NodeView:         answers.NodeView,
	}

	fmt.Println()
	fmt.Println("Graph Analytics Engine")
	fmt.Println("----------------------")

	engineQs := []*survey.Question{
		{
			Name: "application",
			Prompt: &survey.Input{
				Message: "Application name:",
				Default: "NEO4J_GRAPH_ANALYTICS",
			},
			Validate: survey.Required,
		},
		{
			Name: "computepool",
			Prompt: &survey.Select{
				Message: "Compute pool size:",
				Options: []string{"CPU_X64_XS", "CPU_X64_S", "CPU_X64_M", "CPU_X64_L"},
				Default: "CPU_X64_XS",
			},
		},
		{
			Name: "algorithm",
			Prompt: &survey.Select{
				Message: "Default algorithm:",
				Options: []string{"louvain", "pagerank", "wcc"},
				Default: "louvain",
			},
		},
		{
			Name: "outputtable",
			Prompt: &survey.Input{
				Message: "Output table:",
				Default: "P2P_COMMUNITIES",
			},
			Validate: survey.Required,
		},
	}

	engineAnswers := struct {
		Application string `survey:"application"`
		ComputePool string `survey:"computepool"`
		Algorithm   string `survey:"algorithm"`
		OutputTable string `survey:"outputtable"`
	}{}

	if err := survey.Ask(engineQs, &engineAnswers); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	cfg.Engine = models.Engine{
		Application: engineAnswers.Application,
		ComputePool: engineAnswers.ComputePool,
		Algorithm:   engineAnswers.Algorithm,
		OutputTable: engineAnswers.OutputTable,
	}

	cfg.Provision = models.Provision{
		AdminRole:       cfg.Snowflake.Role,
		ConsumerRole:    cfg.Snowflake.Role,
		ApplicationRole: cfg.Engine.Application + ".APP_USER",
	}

	if err := config.Save(cfg); err != nil {
		fmt.Printf("Error saving configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Configuration saved to:", config.GetConfigFile())
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  graphdrop provision   grant the application access")
	fmt.Println("  graphdrop prepare     materialize the graph-ready dataset")
	fmt.Println("  graphdrop run         execute the algorithm")
	fmt.Println("  graphdrop communities summarize the results")
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
