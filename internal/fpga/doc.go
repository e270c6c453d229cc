// Package fpga drives the PCIe FPGA frame source: device geometry queries and
// the chunked bus-transfer engine that moves frame bytes from the device's DDR
// into host memory.
//
// Two engine implementations exist: MMIOEngine programs the real DMA controller
// through memory-mapped registers (Linux only), and SimEngine reproduces the
// same completion protocol in software for tests and bench setups without
// hardware.
package fpga
