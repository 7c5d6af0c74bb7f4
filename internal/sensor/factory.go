package sensor

import (
	"fmt"

	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-thermal/internal/thermal"
)

// New builds the sensor described by cfg.
//
// MQTT sensors are subscribed through sub, which may be nil only for sysfs
// sensors.
//
// Returns:
//   - thermal.Sensor: Ready-to-read sensor
//   - error: ErrUnsupported for unknown types, or a subscribe failure
func New(cfg config.SensorConfig, sub Subscriber, qos byte) (thermal.Sensor, error) {
	switch cfg.Type {
	case config.SensorTypeSysfs:
		return NewSysfs(cfg.Path, cfg.Divisor), nil
	case config.SensorTypeMQTT:
		if sub == nil {
			return nil, fmt.Errorf("%w: mqtt sensor on %s needs mqtt.enabled", ErrUnsupported, cfg.Topic)
		}
		s := NewMQTT(cfg.Topic, cfg.MaxAge())
		if err := s.Subscribe(sub, qos); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, cfg.Type)
	}
}
