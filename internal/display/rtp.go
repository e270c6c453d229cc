package display

import (
	"fmt"
	"net"
	"time"

	"github.com/pion/rtp"
)

// RTPConfig configures the RTP renderer.
type RTPConfig struct {
	// Target is the host:port the raw-video RTP stream is sent to.
	Target string
	// MTU bounds the RTP packet size. Zero selects 1400.
	MTU int
	// PayloadType is the dynamic payload type. Zero selects 96.
	PayloadType uint8
	// SSRC identifies the stream. Zero selects a fixed default so
	// receivers can be configured statically.
	SSRC uint32
	// ClockRate is the RTP clock. Zero selects the 90kHz video clock.
	ClockRate uint32
}

// RTPRenderer packetizes raw frame bytes over UDP for an external receiver.
// Frames are split across as many packets as the MTU requires; the last
// packet of each frame carries the marker bit.
type RTPRenderer struct {
	conn       *net.UDPConn
	packetizer rtp.Packetizer
	clockRate  uint32
}

// NewRTPRenderer resolves the target and opens the UDP socket.
func NewRTPRenderer(cfg RTPConfig) (*RTPRenderer, error) {
	if cfg.MTU <= 0 {
		cfg.MTU = 1400
	}
	if cfg.PayloadType == 0 {
		cfg.PayloadType = 96
	}
	if cfg.SSRC == 0 {
		cfg.SSRC = 0x0755F00D
	}
	if cfg.ClockRate == 0 {
		cfg.ClockRate = 90000
	}

	addr, err := net.ResolveUDPAddr("udp", cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("resolve RTP target %q: %w", cfg.Target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial RTP target: %w", err)
	}

	return &RTPRenderer{
		conn: conn,
		packetizer: rtp.NewPacketizer(
			uint16(cfg.MTU),
			cfg.PayloadType,
			cfg.SSRC,
			&rawPayloader{},
			rtp.NewRandomSequencer(),
			cfg.ClockRate,
		),
		clockRate: cfg.ClockRate,
	}, nil
}

// Push sends the frame as a burst of RTP packets and releases the buffer.
// Send errors are fatal: a dead socket will not come back on its own.
func (r *RTPRenderer) Push(buf *Buffer) error {
	samples := uint32(uint64(r.clockRate) * uint64(buf.Duration) / uint64(time.Second))
	packets := r.packetizer.Packetize(buf.Data, samples)
	// The packets alias buf.Data, so the buffer stays owned until the last
	// one is on the wire. On error the caller keeps ownership.
	for _, pkt := range packets {
		raw, err := pkt.Marshal()
		if err != nil {
			return fmt.Errorf("marshal RTP packet: %w", err)
		}
		if _, err := r.conn.Write(raw); err != nil {
			return fmt.Errorf("send RTP packet: %w", err)
		}
	}
	buf.Release()
	return nil
}

// Close shuts the socket.
func (r *RTPRenderer) Close() error { return r.conn.Close() }

// rawPayloader slices a frame into MTU-sized payloads without any codec
// framing; the receiver reassembles by timestamp.
type rawPayloader struct{}

func (*rawPayloader) Payload(mtu uint16, payload []byte) [][]byte {
	if mtu == 0 || len(payload) == 0 {
		return nil
	}
	var out [][]byte
	for len(payload) > 0 {
		n := int(mtu)
		if n > len(payload) {
			n = len(payload)
		}
		out = append(out, payload[:n])
		payload = payload[n:]
	}
	return out
}
