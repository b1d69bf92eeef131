package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/petems/akasha/internal/audio"
	"github.com/petems/akasha/internal/codec"
	"github.com/petems/akasha/internal/config"
)

var (
	defaultStyle = lipgloss.NewStyle().Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func NewDevicesCmd(deps *Dependencies, configPath *string) *cobra.Command {
	var probe bool
	var format string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List input devices",
		Long:  "List input devices. With --probe, also negotiate the stream configuration each device would record with.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cmd.Flags().Changed("format") {
				cfg.Format = format
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			capture, err := deps.NewCapture(cfg.Audio, nil)
			if err != nil {
				return fmt.Errorf("initializing audio: %w", err)
			}
			defer capture.Close()

			rate := audio.DefaultSampleRate
			if probe {
				c, err := codec.New(codec.Kind(cfg.Format), codec.Options{Bitrate: cfg.Codec.Bitrate})
				if err != nil {
					return err
				}
				rate = c.SampleRate()
			}
			return listDevices(cmd.OutOrStdout(), capture, probe, rate)
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "negotiate a stream configuration for each device")
	cmd.Flags().StringVarP(&format, "format", "f", "", "format whose preferred sample rate is probed")

	return cmd
}

func listDevices(w io.Writer, capture audio.Capture, probe bool, rate int) error {
	devices, err := capture.ListDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Fprintln(w, "No input devices found")
		return nil
	}

	for _, d := range devices {
		name := d.Name
		if d.Default {
			name = defaultStyle.Render(name + " (default)")
		}
		fmt.Fprintf(w, "  %s  [%d ch, %.0f Hz]\n", name, d.MaxInputChannels, d.DefaultSampleRate)

		if !probe {
			continue
		}
		cfg, err := capture.Negotiate(d.ID, rate)
		if err != nil {
			fmt.Fprintf(w, "    %s\n", failStyle.Render("probe failed: "+err.Error()))
			continue
		}
		fmt.Fprintf(w, "    records as %s\n", cfg)
	}
	return nil
}
