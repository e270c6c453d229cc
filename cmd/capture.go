package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rkvision/fpganode/internal/fpga"
	"github.com/spf13/cobra"
)

// CreateCaptureCmd builds the one-shot capture command. It transfers a single
// frame and writes the raw pixels to a file, which is the quickest way to
// check geometry and byte order against a known pattern.
func CreateCaptureCmd() *cobra.Command {
	captureCmd := &cobra.Command{
		Use:   "capture",
		Short: "Transfer one frame and write the raw pixels to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")
			formatName, _ := cmd.Flags().GetString("pixel-format")
			output, _ := cmd.Flags().GetString("output")
			timeoutMs, _ := cmd.Flags().GetInt("timeout-ms")

			format, err := fpga.ParsePixelFormat(formatName)
			if err != nil {
				return err
			}
			info := fpga.Info{FrameWidth: width, FrameHeight: height, PixelFormat: format}

			eng := fpga.NewSimEngine(fpga.SimConfig{Info: info})
			defer eng.Close()

			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutMs)*time.Millisecond)
			defer cancel()

			frame := make([]byte, info.FrameBytes())
			if err := eng.Transfer(ctx, frame); err != nil {
				return fmt.Errorf("transfer: %w", err)
			}

			if err := os.WriteFile(output, frame, 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Printf("wrote %d bytes (%dx%d %s) to %s\n",
				len(frame), width, height, format, output)
			return nil
		},
	}

	captureCmd.Flags().Int("width", 1920, "Frame width in pixels")
	captureCmd.Flags().Int("height", 1080, "Frame height in pixels")
	captureCmd.Flags().String("pixel-format", "bgr565", "Pixel format (bgr565, bgrx8888)")
	captureCmd.Flags().String("output", "frame.raw", "Output file path")
	captureCmd.Flags().Int("timeout-ms", 5000, "Transfer deadline in milliseconds")

	return captureCmd
}
