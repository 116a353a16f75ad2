package telemetry

// Snapshot is the authoritative in-process record of greenhouse device
// state. Fields fall into three topic-scoped groups that are updated
// independently:
//
//   - Environmental: climate and soil probe readings
//   - Actuator: relay states and LED brightness levels
//   - Spectral: per-channel spectral sensor readings
//
// Temperature, Humidity and EarthTemp are tenths-scaled (a value of 215
// means 21.5); the remaining numeric fields carry raw units.
type Snapshot struct {
	// Environmental group
	Temperature int // °C * 10
	Humidity    int // % * 10
	Light       int // lux
	CO2         int // ppm
	EarthTemp   int // °C * 10
	EarthWater  int // soil moisture %
	EarthEC     int // μS/cm
	EarthN      int // mg/kg
	EarthP      int // mg/kg
	EarthK      int // mg/kg

	// Actuator group
	Relay5 int // 0/1
	Relay6 int // 0/1
	Relay7 int // 0/1
	Relay8 int // 0/1
	LED1   int // 0-255
	LED2   int // 0-255
	LED3   int // 0-255
	LED4   int // 0-255

	// Spectral group (sparse; absent channels retain previous values)
	Channel1  int
	Channel2  int
	Channel3  int
	Channel4  int
	Channel5  int
	Channel6  int
	Channel7  int
	Channel8  int
	Channel9  int
	Channel10 int
	Channel11 int
	Flicker   int

	// TimestampMs is the wall-clock time (Unix milliseconds) of the most
	// recent merge.
	TimestampMs int64
}

// Partial is a decoded message carrying only the fields its topic group
// owns. Nil pointer fields are absent from the message and leave the
// snapshot's prior value intact.
//
// The three implementations are EnvironmentPartial, ActuatorPartial and
// SpectralPartial; the sealed apply method keeps field ownership explicit
// so one group's update can never clear another group's fields.
type Partial interface {
	apply(s *Snapshot)
}

// EnvironmentPartial carries climate and soil probe fields decoded from
// the environmental data topic.
type EnvironmentPartial struct {
	Temperature *int
	Humidity    *int
	Light       *int
	CO2         *int
	EarthTemp   *int
	EarthWater  *int
	EarthEC     *int
	EarthN      *int
	EarthP      *int
	EarthK      *int
}

func (p EnvironmentPartial) apply(s *Snapshot) {
	setIfPresent(&s.Temperature, p.Temperature)
	setIfPresent(&s.Humidity, p.Humidity)
	setIfPresent(&s.Light, p.Light)
	setIfPresent(&s.CO2, p.CO2)
	setIfPresent(&s.EarthTemp, p.EarthTemp)
	setIfPresent(&s.EarthWater, p.EarthWater)
	setIfPresent(&s.EarthEC, p.EarthEC)
	setIfPresent(&s.EarthN, p.EarthN)
	setIfPresent(&s.EarthP, p.EarthP)
	setIfPresent(&s.EarthK, p.EarthK)
}

// ActuatorPartial carries relay and LED fields decoded from the sensor
// node topic.
type ActuatorPartial struct {
	Relay5 *int
	Relay6 *int
	Relay7 *int
	Relay8 *int
	LED1   *int
	LED2   *int
	LED3   *int
	LED4   *int
}

func (p ActuatorPartial) apply(s *Snapshot) {
	setIfPresent(&s.Relay5, p.Relay5)
	setIfPresent(&s.Relay6, p.Relay6)
	setIfPresent(&s.Relay7, p.Relay7)
	setIfPresent(&s.Relay8, p.Relay8)
	setIfPresent(&s.LED1, p.LED1)
	setIfPresent(&s.LED2, p.LED2)
	setIfPresent(&s.LED3, p.LED3)
	setIfPresent(&s.LED4, p.LED4)
}

// SpectralPartial carries per-channel readings decoded from the spectral
// data topic. Spectral payloads are sparse; most messages set only a
// subset of channels.
type SpectralPartial struct {
	Channel1  *int
	Channel2  *int
	Channel3  *int
	Channel4  *int
	Channel5  *int
	Channel6  *int
	Channel7  *int
	Channel8  *int
	Channel9  *int
	Channel10 *int
	Channel11 *int
	Flicker   *int
}

func (p SpectralPartial) apply(s *Snapshot) {
	setIfPresent(&s.Channel1, p.Channel1)
	setIfPresent(&s.Channel2, p.Channel2)
	setIfPresent(&s.Channel3, p.Channel3)
	setIfPresent(&s.Channel4, p.Channel4)
	setIfPresent(&s.Channel5, p.Channel5)
	setIfPresent(&s.Channel6, p.Channel6)
	setIfPresent(&s.Channel7, p.Channel7)
	setIfPresent(&s.Channel8, p.Channel8)
	setIfPresent(&s.Channel9, p.Channel9)
	setIfPresent(&s.Channel10, p.Channel10)
	setIfPresent(&s.Channel11, p.Channel11)
	setIfPresent(&s.Flicker, p.Flicker)
}

func setIfPresent(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
