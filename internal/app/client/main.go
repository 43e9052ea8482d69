package client

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/HarshitVashisht11/Transly/internal/app/transcription/api"
	"github.com/HarshitVashisht11/Transly/internal/pkg/cmdapp"
	"github.com/HarshitVashisht11/Transly/internal/pkg/jobclient"
	"github.com/HarshitVashisht11/Transly/internal/pkg/poller"
)

var appName = "Transly Client"

var rootCmd = &cobra.Command{
	Use:   "transcriptionClient",
	Short: appName + " sends media files to the transcription service",
}

var submitCmd = &cobra.Command{
	Use:   "submit <file>",
	Short: "Upload a media file and wait for the transcript",
	Args:  cobra.ExactArgs(1),
	Run:   submit,
}

var statusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show the current state of a transcription job",
	Args:  cobra.ExactArgs(1),
	Run:   jobStatus,
}

var watchCmd = &cobra.Command{
	Use:   "watch <id>",
	Short: "Track a job until it completes or fails",
	Args:  cobra.ExactArgs(1),
	Run:   watch,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your transcription jobs, newest first",
	Run:   list,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a transcription job and its files",
	Args:  cobra.ExactArgs(1),
	Run:   deleteJob,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	submitCmd.Flags().String("model", api.DefaultModel, "engine model size")
	submitCmd.Flags().String("language", api.DefaultLanguage, "spoken language or auto")
	submitCmd.Flags().Bool("translate", false, "translate to English")
	rootCmd.AddCommand(submitCmd, statusCmd, watchCmd, listCmd, deleteCmd)
}

// Execute starts the client app
func Execute() {
	cmdapp.Execute(rootCmd)
}

func newClient() *jobclient.Client {
	c, err := jobclient.NewClient()
	cmdapp.CheckOrPanic(err, "Can't init service client")
	return c
}

func submit(cmd *cobra.Command, args []string) {
	params := api.DefaultParameters()
	params.Model, _ = cmd.Flags().GetString("model")
	params.Language, _ = cmd.Flags().GetString("language")
	params.Translate, _ = cmd.Flags().GetBool("translate")

	file, err := os.Open(args[0])
	cmdapp.CheckOrPanic(err, "Can't open the file")
	defer file.Close()

	cmdapp.Log.Infof("Uploading %s. The call blocks until the transcript is ready", args[0])
	res, err := newClient().Submit(filepath.Base(args[0]), file, params)
	cmdapp.CheckOrPanic(err, "Transcription failed")
	fmt.Printf("ID:     %s\nStatus: %s\n\n%s\n", res.ID, res.Status, res.Transcript)
}

func jobStatus(cmd *cobra.Command, args []string) {
	job, err := newClient().GetJob(args[0])
	cmdapp.CheckOrPanic(err, "Can't get the job")
	printJob(job)
}

func watch(cmd *cobra.Command, args []string) {
	p, err := poller.NewPoller(newClient())
	cmdapp.CheckOrPanic(err, "Can't init poller")

	done := make(chan error, 1)
	_, err = p.Start(args[0], poller.Events{
		OnProgress: func(v int32) {
			fmt.Printf("\rProgress: %3d%%", v)
		},
		OnCompleted: func(job *api.Job) {
			fmt.Printf("\n\n%s\n", job.Transcript)
			done <- nil
		},
		OnFailed: func(id string, err error) {
			fmt.Println()
			done <- err
		},
	})
	cmdapp.CheckOrPanic(err, "Can't start polling")

	select {
	case err := <-done:
		cmdapp.CheckOrPanic(err, "Transcription failed")
	case <-cmdapp.NewSignalChannel():
		p.Cancel(args[0])
		fmt.Println("\nStopped")
	}
}

func list(cmd *cobra.Command, args []string) {
	jobs, err := newClient().ListJobs()
	cmdapp.CheckOrPanic(err, "Can't list jobs")
	if len(jobs) == 0 {
		fmt.Println("No transcriptions")
		return
	}
	for _, job := range jobs {
		fmt.Printf("%s  %-10s  %s\n", job.ID, job.Status,
			job.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func deleteJob(cmd *cobra.Command, args []string) {
	err := newClient().Delete(args[0])
	cmdapp.CheckOrPanic(err, "Can't delete the job")
	fmt.Println("Transcription job deleted successfully")
}

func printJob(job *api.Job) {
	fmt.Printf("ID:      %s\nStatus:  %s\nModel:   %s\nCreated: %s\n",
		job.ID, job.Status, job.Parameters.Model,
		job.CreatedAt.Format("2006-01-02 15:04:05"))
	if job.Transcript != "" {
		fmt.Printf("\n%s\n", job.Transcript)
	}
}
