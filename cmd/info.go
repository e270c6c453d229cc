package cmd

import (
	"encoding/json"
	"os"

	"github.com/rkvision/fpganode/internal/fpga"
	"github.com/spf13/cobra"
)

// CreateInfoCmd builds the device-info command. It reports the frame geometry
// and the derived transfer parameters without starting the pipeline.
func CreateInfoCmd() *cobra.Command {
	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Print device geometry and transfer parameters",
		Long:  `Prints the frame geometry, derived sizes, and the chunk layout one frame transfer will use. With --sim the simulated device is described instead of real hardware.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")
			formatName, _ := cmd.Flags().GetString("pixel-format")

			format, err := fpga.ParsePixelFormat(formatName)
			if err != nil {
				return err
			}
			info := fpga.Info{
				FrameWidth:  width,
				FrameHeight: height,
				PixelFormat: format,
			}

			type chunkSummary struct {
				Count    int `json:"count"`
				MaxBytes int `json:"max_bytes"`
			}
			out := struct {
				fpga.Info
				FrameBytes int          `json:"frame_bytes"`
				Stride     int          `json:"stride"`
				Chunks     chunkSummary `json:"chunks"`
			}{
				Info:       info,
				FrameBytes: info.FrameBytes(),
				Stride:     info.Stride(),
				Chunks: chunkSummary{
					Count:    (info.FrameBytes() + fpga.MaxChunkBytes - 1) / fpga.MaxChunkBytes,
					MaxBytes: fpga.MaxChunkBytes,
				},
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	infoCmd.Flags().Int("width", 1920, "Frame width in pixels")
	infoCmd.Flags().Int("height", 1080, "Frame height in pixels")
	infoCmd.Flags().String("pixel-format", "bgr565", "Pixel format (bgr565, bgrx8888)")

	return infoCmd
}
