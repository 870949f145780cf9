package testutil

import "github.com/desingh-rajan/msi-fan-control/internal/ec"

// FakeFanService is a reusable fake implementing ports.FanControlService.
// Put ONLY what multiple test packages need here.
type FakeFanService struct {
	S           ec.Status
	IsConnected bool

	ConnectCalled bool
	ConnectErr    error

	DisconnectCalled bool

	StatusCalled bool
	StatusErr    error

	SetCoolerBoostCalled bool
	SetCoolerBoostArg    bool
	SetCoolerBoostErr    error

	SetFanSpeedCalled bool
	SetFanSpeedArg    uint8
	SetFanSpeedErr    error

	SetFanModeCalled bool
	SetFanModeArg    string
	SetFanModeErr    error
}

func NewFakeFanService() *FakeFanService {
	return &FakeFanService{
		S: ec.Status{
			CPUTemp: 52,
			GPUTemp: 45,
			Fan1RPM: 2500,
			Fan2RPM: 2000,
			FanMode: ec.FanModeAuto,
		},
		IsConnected: true,
	}
}

func (f *FakeFanService) Connect() (ec.Status, error) {
	f.ConnectCalled = true
	if f.ConnectErr != nil {
		return ec.Status{}, f.ConnectErr
	}
	f.IsConnected = true
	return f.S, nil
}

func (f *FakeFanService) Disconnect() {
	f.DisconnectCalled = true
	f.IsConnected = false
}

func (f *FakeFanService) Connected() bool { return f.IsConnected }

func (f *FakeFanService) Status() (ec.Status, error) {
	f.StatusCalled = true
	if f.StatusErr != nil {
		return ec.Status{}, f.StatusErr
	}
	return f.S, nil
}

func (f *FakeFanService) SetCoolerBoost(enabled bool) (string, error) {
	f.SetCoolerBoostCalled = true
	f.SetCoolerBoostArg = enabled
	if f.SetCoolerBoostErr != nil {
		return "", f.SetCoolerBoostErr
	}
	f.S.CoolerBoost = enabled
	if enabled {
		return "Cooler Boost enabled", nil
	}
	return "Cooler Boost disabled", nil
}

func (f *FakeFanService) SetFanSpeed(percent uint8) (string, error) {
	f.SetFanSpeedCalled = true
	f.SetFanSpeedArg = percent
	if f.SetFanSpeedErr != nil {
		return "", f.SetFanSpeedErr
	}
	f.S.FanMode = ec.FanModeAdvanced
	return "Fan speed set", nil
}

func (f *FakeFanService) SetFanMode(mode string) (string, error) {
	f.SetFanModeCalled = true
	f.SetFanModeArg = mode
	if f.SetFanModeErr != nil {
		return "", f.SetFanModeErr
	}
	m, err := ec.ParseFanMode(mode)
	if err != nil {
		return "", err
	}
	f.S.FanMode = m
	return "Fan mode set to " + mode, nil
}
