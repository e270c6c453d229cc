package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deviceInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fpganode",
		Subsystem: "device",
		Name:      "info",
		Help:      "Device identity, always 1 with identifying labels",
	}, []string{"vendor_id", "device_id", "pixel_format"})

	deviceLinkWidth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fpganode",
		Subsystem: "device",
		Name:      "link_width",
		Help:      "Negotiated bus link width in lanes",
	})

	deviceLinkSpeed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fpganode",
		Subsystem: "device",
		Name:      "link_speed",
		Help:      "Negotiated bus link speed generation",
	})
)

// SetDeviceInfo records the device identity reported at startup.
func SetDeviceInfo(vendorID, deviceID uint32, pixelFormat string, linkWidth, linkSpeed uint32) {
	deviceInfo.WithLabelValues(
		fmt.Sprintf("0x%04x", vendorID),
		fmt.Sprintf("0x%04x", deviceID),
		pixelFormat,
	).Set(1)
	deviceLinkWidth.Set(float64(linkWidth))
	deviceLinkSpeed.Set(float64(linkSpeed))
}
