package ports

import "github.com/desingh-rajan/msi-fan-control/internal/ec"

// FanControlService is the control-plane port used by controllers
// (HTTP/MQTT/Modbus). The supervisor implements it; controllers never see
// the pipe.
type FanControlService interface {
	Connect() (ec.Status, error)
	Disconnect()
	Connected() bool
	Status() (ec.Status, error)
	SetCoolerBoost(enabled bool) (string, error)
	SetFanSpeed(percent uint8) (string, error)
	SetFanMode(mode string) (string, error)
}
