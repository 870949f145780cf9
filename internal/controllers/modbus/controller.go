package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	mbserver "github.com/tbrandon/mbserver"

	"github.com/desingh-rajan/msi-fan-control/internal/ec"
	"github.com/desingh-rajan/msi-fan-control/internal/ports"
)

// Register layout exposed over Modbus TCP.
//
//	coil 0              cooler boost (FC1 read, FC5 write)
//	input register 0    cpu temperature, °C
//	input register 1    gpu temperature, °C
//	input register 2    fan 1 RPM
//	input register 3    fan 2 RPM
//	input register 4    fan mode code (0x0D/0x1D/0x4D/0x8D)
//	holding register 0  fixed fan speed percent (FC6 write)
//	holding register 1  fan mode code (FC6 write)
const inputRegisterCount = 5

// Config for the Modbus controller.
type Config struct {
	DeviceID string
	Addr     string
	UnitID   byte // UnitID (Modbus slave/unit ID). Use an integer 1..247.
}

type Controller struct {
	svc ports.FanControlService
	cfg Config

	serv *mbserver.Server
}

func New(svc ports.FanControlService, cfg Config) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	return &Controller{svc: svc, cfg: cfg}, nil
}

// Run starts the Modbus server with handlers that read through to the
// sidecar and apply writes immediately. It blocks until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Register handlers BEFORE starting the TCP listener to avoid races
	// inside mbserver between registration and its accept goroutines.

	// Read Coils (function 1) - coil 0 is cooler boost.
	serv.RegisterFunctionHandler(1, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		start, qty, ex := readRange(frame)
		if ex != nil {
			return []byte{}, ex
		}
		if start != 0 || qty != 1 {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		st, err := c.svc.Status()
		if err != nil {
			return []byte{}, &mbserver.SlaveDeviceFailure
		}
		coilByte := byte(0)
		if st.CoolerBoost {
			coilByte = 0x01
		}
		return []byte{1, coilByte}, &mbserver.Success
	})

	// Read Input Registers (function 4) - registers 0..4 from one fresh
	// sidecar status.
	serv.RegisterFunctionHandler(4, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		start, qty, ex := readRange(frame)
		if ex != nil {
			return []byte{}, ex
		}
		if start+qty > inputRegisterCount {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		st, err := c.svc.Status()
		if err != nil {
			return []byte{}, &mbserver.SlaveDeviceFailure
		}
		values := []uint16{
			uint16(st.CPUTemp),
			uint16(st.GPUTemp),
			clampRPM(st.Fan1RPM),
			clampRPM(st.Fan2RPM),
			uint16(byte(st.FanMode)),
		}
		byteCount := qty * 2
		resp := make([]byte, 1+byteCount)
		resp[0] = byte(byteCount)
		for i := 0; i < qty; i++ {
			binary.BigEndian.PutUint16(resp[1+i*2:], values[start+i])
		}
		return resp, &mbserver.Success
	})

	// Write Single Coil (function 5) - coil 0 toggles cooler boost.
	serv.RegisterFunctionHandler(5, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		addr := binary.BigEndian.Uint16(data[0:2])
		value := binary.BigEndian.Uint16(data[2:4])
		if addr != 0 {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		if value != 0xFF00 && value != 0x0000 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		if _, err := c.svc.SetCoolerBoost(value == 0xFF00); err != nil {
			return []byte{}, &mbserver.SlaveDeviceFailure
		}
		return data[0:4], &mbserver.Success
	})

	// Write Single Register (function 6) - holding register 0 sets a
	// fixed fan speed, register 1 a fan mode code.
	serv.RegisterFunctionHandler(6, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		addr := binary.BigEndian.Uint16(data[0:2])
		value := binary.BigEndian.Uint16(data[2:4])
		switch addr {
		case 0:
			if value > 0xFF {
				return []byte{}, &mbserver.IllegalDataValue
			}
			if _, err := c.svc.SetFanSpeed(uint8(value)); err != nil {
				return []byte{}, &mbserver.SlaveDeviceFailure
			}
		case 1:
			mode := ec.FanMode(value)
			if value > 0xFF || !mode.Known() {
				return []byte{}, &mbserver.IllegalDataValue
			}
			if _, err := c.svc.SetFanMode(mode.String()); err != nil {
				return []byte{}, &mbserver.SlaveDeviceFailure
			}
		default:
			return []byte{}, &mbserver.IllegalDataAddress
		}
		return data[0:4], &mbserver.Success
	})

	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("modbus listen %s: %w", c.cfg.Addr, err)
	}

	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

// readRange extracts and bounds-checks the (start, quantity) pair common
// to the read functions.
func readRange(frame mbserver.Framer) (start, qty int, ex *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return 0, 0, &mbserver.IllegalDataValue
	}
	start = int(binary.BigEndian.Uint16(data[0:2]))
	qty = int(binary.BigEndian.Uint16(data[2:4]))
	if qty == 0 || qty > 125 {
		return 0, 0, &mbserver.IllegalDataValue
	}
	return start, qty, nil
}

// clampRPM fits an RPM reading into one register. Physical readings stay
// far below the cap; only garbage would exceed it.
func clampRPM(rpm uint32) uint16 {
	if rpm > 0xFFFF {
		return 0xFFFF
	}
	return uint16(rpm)
}
