package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"sudar-cli/internal/app"
	"sudar-cli/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const version = "0.3.0"

func main() {
	var (
		configPath  string
		classroomID string
		subjectID   string
		chatID      string
		flowName    string
	)

	root := &cobra.Command{
		Use:     "sudar",
		Short:   "Terminal client for the Sudar teaching assistant",
		Long:    "sudar is a terminal client for the Sudar platform: ask doubts, generate worksheets and manage classroom materials without leaving the shell.\n\nRun without arguments to open the chat UI. Credentials come from ~/.sudar/config.yaml, a .env beside it, or SUDAR_* environment variables.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if flowName == "" {
				flowName = cfg.DefaultFlow
			}
			flow, ok := app.ParseFlow(flowName)
			if !ok {
				return fmt.Errorf("unknown flow %q (doubt_clearance or worksheet_generation)", flowName)
			}

			application := app.NewApplication(cfg)
			defer application.Close()

			session := application.NewSession(chatID, classroomID, subjectID, flow)
			if chatID != "" {
				// Resuming: pull the saved transcript before the UI starts. A
				// fetch failure opens the chat empty rather than aborting.
				ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
				records, err := application.Platform.ChatHistory(ctx, chatID)
				cancel()
				if err != nil {
					fmt.Fprintf(os.Stderr, "warning: could not load chat history: %v\n", err)
				} else {
					session.SwitchChat(chatID, app.ReconcileHistory(records))
				}
			}

			p := tea.NewProgram(tui.NewMainModel(application, session), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}

	root.Flags().StringVar(&configPath, "config", "", "config file (default ~/.sudar/config.yaml)")
	root.Flags().StringVar(&classroomID, "classroom", "", "classroom id the session belongs to")
	root.Flags().StringVar(&subjectID, "subject", "", "subject id the session belongs to")
	root.Flags().StringVar(&chatID, "chat", "", "resume an existing chat id")
	root.Flags().StringVar(&flowName, "flow", "", "conversation flow: doubt_clearance or worksheet_generation")

	var initDefaults bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Configure the platform connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = app.DefaultConfigPath()
			}
			if initDefaults {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists", path)
				}
				if err := app.SaveConfig(app.DefaultConfig(), path); err != nil {
					return err
				}
				fmt.Println("wrote", path)
				return nil
			}

			// Existing settings pre-fill the wizard.
			cfg, err := app.LoadConfig(path)
			if err != nil {
				return err
			}
			wizard := tui.NewSetupWizard(&cfg, path)
			if _, err := tea.NewProgram(wizard).Run(); err != nil {
				return err
			}
			if wizard.Saved() {
				fmt.Println("wrote", path)
			}
			return nil
		},
	}
	initCmd.Flags().BoolVar(&initDefaults, "defaults", false, "write the default config without prompting")
	root.AddCommand(initCmd)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("sudar", version)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
