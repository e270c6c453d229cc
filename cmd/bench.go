package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rkvision/fpganode/internal/fpga"
	"github.com/spf13/cobra"
)

// CreateBenchCmd builds the transfer benchmark command. It drives the
// simulated engine through full-frame transfers and reports throughput, which
// exercises the exact chunking and polling code the real device uses.
func CreateBenchCmd() *cobra.Command {
	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark the chunked transfer path against the simulated device",
		RunE: func(cmd *cobra.Command, args []string) error {
			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")
			formatName, _ := cmd.Flags().GetString("pixel-format")
			frames, _ := cmd.Flags().GetInt("frames")
			delayUs, _ := cmd.Flags().GetInt("chunk-delay-us")

			format, err := fpga.ParsePixelFormat(formatName)
			if err != nil {
				return err
			}
			info := fpga.Info{FrameWidth: width, FrameHeight: height, PixelFormat: format}

			eng := fpga.NewSimEngine(fpga.SimConfig{
				Info:            info,
				CompletionDelay: time.Duration(delayUs) * time.Microsecond,
			})
			defer eng.Close()

			dst := make([]byte, info.FrameBytes())
			start := time.Now()
			for i := 0; i < frames; i++ {
				if err := eng.Transfer(context.Background(), dst); err != nil {
					return fmt.Errorf("transfer %d: %w", i, err)
				}
			}
			elapsed := time.Since(start)

			totalBytes := int64(frames) * int64(info.FrameBytes())
			fmt.Printf("transferred %d frames (%d bytes) in %v\n", frames, totalBytes, elapsed.Round(time.Millisecond))
			fmt.Printf("rate: %.1f fps, %.1f MB/s\n",
				float64(frames)/elapsed.Seconds(),
				float64(totalBytes)/elapsed.Seconds()/(1<<20))
			return nil
		},
	}

	benchCmd.Flags().Int("width", 1920, "Frame width in pixels")
	benchCmd.Flags().Int("height", 1080, "Frame height in pixels")
	benchCmd.Flags().String("pixel-format", "bgr565", "Pixel format (bgr565, bgrx8888)")
	benchCmd.Flags().Int("frames", 300, "Number of frames to transfer")
	benchCmd.Flags().Int("chunk-delay-us", 0, "Simulated per-chunk completion delay in microseconds")

	return benchCmd
}
