package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/gousb"

	"github.com/viable-protocol/viable-go/pkg/wire"
)

// HIDConfig selects the device and endpoint to open.
type HIDConfig struct {
	VendorID  uint16
	ProductID uint16

	// InterfaceNumber is the raw-HID interface exposing the
	// configuration endpoint. Most firmwares put it on interface 1,
	// after the boot keyboard interface.
	InterfaceNumber int

	// ReportSize is the size of every report in both directions.
	// Zero selects DefaultReportSize.
	ReportSize int
}

// DefaultReportSize is the raw-HID report size used when the config
// does not specify one.
const DefaultReportSize = 64

// HIDConn is a Conn over a raw-HID USB endpoint pair.
type HIDConn struct {
	usbCtx *gousb.Context
	device *gousb.Device
	cfg    *gousb.Config
	intf   *gousb.Interface
	inEp   *gousb.InEndpoint
	outEp  *gousb.OutEndpoint

	reportSize int
}

// OpenHID opens the first device matching the config's vendor and
// product id and claims its raw-HID interface.
func OpenHID(conf HIDConfig) (*HIDConn, error) {
	reportSize := conf.ReportSize
	if reportSize == 0 {
		reportSize = DefaultReportSize
	}
	if reportSize < wire.MinReportSize {
		return nil, fmt.Errorf("%w: %d below minimum %d", ErrReportSize, reportSize, wire.MinReportSize)
	}

	usbCtx := gousb.NewContext()

	dev, err := usbCtx.OpenDeviceWithVIDPID(gousb.ID(conf.VendorID), gousb.ID(conf.ProductID))
	if err != nil {
		usbCtx.Close()
		return nil, fmt.Errorf("opening device %04x:%04x: %w", conf.VendorID, conf.ProductID, err)
	}
	if dev == nil {
		usbCtx.Close()
		return nil, fmt.Errorf("device %04x:%04x not found", conf.VendorID, conf.ProductID)
	}

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		usbCtx.Close()
		return nil, fmt.Errorf("setting auto-detach: %w", err)
	}

	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		dev.Close()
		usbCtx.Close()
		return nil, fmt.Errorf("reading active configuration: %w", err)
	}

	cfg, err := dev.Config(cfgNum)
	if err != nil {
		dev.Close()
		usbCtx.Close()
		return nil, fmt.Errorf("claiming configuration %d: %w", cfgNum, err)
	}

	intf, err := cfg.Interface(conf.InterfaceNumber, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		usbCtx.Close()
		return nil, fmt.Errorf("claiming interface %d: %w", conf.InterfaceNumber, err)
	}

	var (
		inEp  *gousb.InEndpoint
		outEp *gousb.OutEndpoint
	)
	for _, ep := range intf.Setting.Endpoints {
		switch ep.Direction {
		case gousb.EndpointDirectionIn:
			inEp, err = intf.InEndpoint(ep.Number)
		case gousb.EndpointDirectionOut:
			outEp, err = intf.OutEndpoint(ep.Number)
		}
		if err != nil {
			intf.Close()
			cfg.Close()
			dev.Close()
			usbCtx.Close()
			return nil, fmt.Errorf("claiming endpoint %d: %w", ep.Number, err)
		}
	}
	if inEp == nil || outEp == nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		usbCtx.Close()
		return nil, fmt.Errorf("interface %d has no IN/OUT endpoint pair", conf.InterfaceNumber)
	}

	return &HIDConn{
		usbCtx:     usbCtx,
		device:     dev,
		cfg:        cfg,
		intf:       intf,
		inEp:       inEp,
		outEp:      outEp,
		reportSize: reportSize,
	}, nil
}

// Send writes one report to the OUT endpoint.
func (c *HIDConn) Send(ctx context.Context, report []byte) error {
	if len(report) != c.reportSize {
		return fmt.Errorf("%w: got %d, want %d", ErrReportSize, len(report), c.reportSize)
	}
	if _, err := c.outEp.WriteContext(ctx, report); err != nil {
		return fmt.Errorf("writing report: %w", mapUSBError(err))
	}
	return nil
}

// Receive blocks for one report from the IN endpoint.
func (c *HIDConn) Receive(ctx context.Context) ([]byte, error) {
	buf := make([]byte, c.reportSize)
	n, err := c.inEp.ReadContext(ctx, buf)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", mapUSBError(err))
	}
	return buf[:n], nil
}

// ReportSize returns the configured report size.
func (c *HIDConn) ReportSize() int { return c.reportSize }

// Close releases the interface, configuration and device in order.
func (c *HIDConn) Close() error {
	var errs error
	if c.intf != nil {
		c.intf.Close()
	}
	if c.cfg != nil {
		if err := c.cfg.Close(); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	if c.device != nil {
		if err := c.device.Close(); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	if c.usbCtx != nil {
		if err := c.usbCtx.Close(); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

func mapUSBError(err error) error {
	switch {
	case errors.Is(err, gousb.TransferTimedOut),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, gousb.ErrorNoDevice):
		return fmt.Errorf("%w: %v", ErrClosed, err)
	default:
		return err
	}
}

var _ Conn = (*HIDConn)(nil)
