package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/petems/akasha/internal/audio"
	"github.com/petems/akasha/internal/config"
)

// CaptureFactory opens the capture backend. Tests replace it with a fake.
type CaptureFactory func(cfg config.AudioConfig, observer audio.Observer) (audio.Capture, error)

type Dependencies struct {
	Version    string
	Commit     string
	Stdin      *os.File
	Stdout     io.Writer
	Stderr     io.Writer
	NewCapture CaptureFactory
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.NewCapture == nil {
		deps.NewCapture = audio.New
	}

	var configPath string

	rootCmd := &cobra.Command{
		Use:           "akasha",
		Short:         "Record the microphone into fixed-length audio segments",
		Long:          "Records the default (or chosen) input device into consecutive WAV or Ogg Opus files,\nshowing a live level meter. Press space to toggle the meter, q to quit.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.Version = deps.Version + " (" + deps.Commit + ")"
	rootCmd.SetOut(deps.Stdout)
	rootCmd.SetErr(deps.Stderr)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (.toml, .yaml or .json)")

	record := NewRecordCmd(deps, &configPath)
	rootCmd.Flags().AddFlagSet(record.Flags())
	rootCmd.RunE = record.RunE

	rootCmd.AddCommand(record)
	rootCmd.AddCommand(NewDevicesCmd(deps, &configPath))

	return rootCmd
}
