package core

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/cmd/corevisorctl/cmdutil"
	"github.com/marmos91/corevisor/internal/cli/output"
	"github.com/marmos91/corevisor/pkg/controlplane/models"
)

var jobCmd = &cobra.Command{
	Use:   "job [id]",
	Short: "Show a lifecycle job",
	Long: `Show a lifecycle job by ID, or the most recent job when no ID is given.

Examples:
  corevisorctl core job
  corevisorctl core job 3f1c2a9e-7b1d-4a47-9f0e-52b6d2c1e0aa -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJob,
}

func runJob(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	var job *models.Job
	if len(args) == 1 {
		job, err = client.Job(args[0])
	} else {
		job, err = client.LastJob()
	}
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	return cmdutil.PrintKeyValues(os.Stdout, job, jobPairs(job))
}

func jobPairs(j *models.Job) [][2]string {
	finished := "-"
	if j.FinishedAt != nil {
		finished = output.Time(*j.FinishedAt)
	}
	pairs := [][2]string{
		{"ID", j.ID},
		{"Operation", j.Operation},
		{"Status", string(j.Status)},
		{"Started", output.Time(j.StartedAt)},
		{"Finished", finished},
		{"Duration", output.Duration(j.Duration())},
	}
	if j.Params != "" {
		pairs = append(pairs, [2]string{"Params", j.Params})
	}
	if j.Error != "" {
		pairs = append(pairs, [2]string{"Error", j.Error})
	}
	return pairs
}
