package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/desingh-rajan/msi-fan-control/internal/ec"
	"github.com/desingh-rajan/msi-fan-control/internal/ports"
)

type Config struct {
	// Identity
	DeviceID string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS             byte
	RetainStatus    bool
	PublishInterval time.Duration

	Username string
	Password string
}

type Controller struct {
	svc ports.FanControlService
	cfg Config

	client mqtt.Client
}

func New(svc ports.FanControlService, cfg Config) (*Controller, error) {
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}

	if cfg.DeviceID == "" {
		return nil, errors.New("mqtt: DeviceID is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "msifan/" + cfg.DeviceID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "msifan-" + cfg.DeviceID
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	return &Controller{
		svc: svc,
		cfg: cfg,
	}, nil
}

func (c *Controller) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		topic := c.topic("set/+")
		token := cl.Subscribe(topic, c.cfg.QoS, c.onMessage)
		token.Wait()
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	// Publish loop. Every tick polls the sidecar for a fresh status; a
	// disconnected or busy sidecar just skips the tick.
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	c.publishStatus()

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			c.publishStatus()
		}
	}
}

func (c *Controller) publishStatus() {
	st, err := c.svc.Status()
	if err != nil {
		return
	}
	dto := statusDTO{
		CPUTemp:     st.CPUTemp,
		GPUTemp:     st.GPUTemp,
		Fan1RPM:     st.Fan1RPM,
		Fan2RPM:     st.Fan2RPM,
		CoolerBoost: st.CoolerBoost,
		FanMode:     st.FanMode.String(),
	}
	b, _ := json.Marshal(dto)
	c.client.Publish(c.topic("status"), c.cfg.QoS, c.cfg.RetainStatus, b)
}

type statusDTO struct {
	CPUTemp     uint8  `json:"cpu_temp"`
	GPUTemp     uint8  `json:"gpu_temp"`
	Fan1RPM     uint32 `json:"fan1_rpm"`
	Fan2RPM     uint32 `json:"fan2_rpm"`
	CoolerBoost bool   `json:"cooler_boost"`
	FanMode     string `json:"fan_mode"`
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/set/<field>
	t := msg.Topic()
	prefix := c.cfg.BaseTopic + "/set/"
	if !strings.HasPrefix(t, prefix) {
		return
	}
	field := strings.TrimPrefix(t, prefix)

	payload := msg.Payload()

	// Dispatch by field. Service errors are swallowed: this is a
	// fire-and-forget surface, the status topic reflects the outcome.
	switch field {
	case "cooler_boost":
		v, err := decodeValueStrict[bool](payload)
		if err != nil {
			return
		}
		_, _ = c.svc.SetCoolerBoost(v)

	case "fan_speed":
		v, err := decodeValueStrict[uint8](payload)
		if err != nil {
			return
		}
		_, _ = c.svc.SetFanSpeed(v)

	case "fan_mode":
		s, err := decodeValueStrict[string](payload)
		if err != nil {
			return
		}
		if _, err := ec.ParseFanMode(s); err != nil {
			return
		}
		_, _ = c.svc.SetFanMode(s)
	}
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
