// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/marker-pipeline/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List recorded conversion jobs",
	Long:  `Jobs prints the conversion job ledger, newest first.`,
	RunE:  runJobs,
}

func init() {
	jobsCmd.Flags().Int("limit", 50, "maximum number of jobs to show")
	jobsCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	ledger, err := store.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer ledger.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	jobs, err := ledger.List(context.Background(), limit)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(jobs)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-24s  %-8s  %-10s  %-7s  %s\n",
		"Document", "Status", "Duration", "Tables", "Created")
	for _, j := range jobs {
		tablesCol := "-"
		if j.TableCount >= 0 {
			tablesCol = fmt.Sprintf("%d", j.TableCount)
		}
		doc := j.Document
		if len(doc) > 24 {
			doc = doc[:21] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-24s  %-8s  %-10s  %-7s  %s\n",
			doc, j.Status, j.Duration.Round(time.Millisecond), tablesCol,
			j.CreatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(os.Stdout, "\n%d job(s)\n", len(jobs))
	return nil
}
