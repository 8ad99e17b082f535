package io

// ChannelDescription is a config-oriented view of one channel, without
// live reads. It is what this device advertises in discovery replies (the
// advertisement site filters out udp-in channels to avoid loops).
type ChannelDescription struct {
	ID     string  `json:"id"`
	Kind   Kind    `json:"type"`
	Index  int     `json:"index"`
	K      float64 `json:"k"`
	B      float64 `json:"b"`
	Unit   string  `json:"unit"`
	Origin string  `json:"origin"`

	Remote  *DescriptorSummary `json:"remote,omitempty"`
	Runtime *RuntimeSummary    `json:"runtime,omitempty"`
}

// DescriptorSummary mirrors the configured remote descriptor.
type DescriptorSummary struct {
	ChannelID    string `json:"channel_id,omitempty"`
	ChannelLabel string `json:"channel_label,omitempty"`
	ChannelType  string `json:"channel_type,omitempty"`
	ChannelIndex int    `json:"channel_index"`
	ChannelUnit  string `json:"channel_unit,omitempty"`
	MAC          string `json:"mac,omitempty"`
	IP           string `json:"ip,omitempty"`
	Hostname     string `json:"hostname,omitempty"`
}

// RuntimeSummary reports a udp-in channel's cache flags and the resolved
// producer identity.
type RuntimeSummary struct {
	HasRaw         bool   `json:"has_raw"`
	HasValue       bool   `json:"has_value"`
	LastUpdateMS   int64  `json:"last_update_ms"`
	SourceMAC      string `json:"source_mac,omitempty"`
	SourceIP       string `json:"source_ip,omitempty"`
	SourceHostname string `json:"source_hostname,omitempty"`
}

// DescribeChannels dumps the configuration of all channels, no live reads.
func (r *Registry) DescribeChannels() []ChannelDescription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ChannelDescription, 0, r.count)
	for i := 0; i < r.count; i++ {
		ch := &r.table[i]
		desc := ChannelDescription{
			ID:     ch.ID,
			Kind:   ch.Kind,
			Index:  ch.Index,
			K:      ch.K,
			B:      ch.B,
			Unit:   ch.Unit,
			Origin: string(ch.Kind),
		}
		if ch.HasRemote {
			desc.Remote = &DescriptorSummary{
				ChannelID:    ch.Remote.ChannelID,
				ChannelLabel: ch.Remote.ChannelLabel,
				ChannelType:  ch.Remote.ChannelType,
				ChannelIndex: ch.Remote.ChannelIndex,
				ChannelUnit:  ch.Remote.ChannelUnit,
				MAC:          ch.Remote.MAC,
				IP:           ch.Remote.IP,
				Hostname:     ch.Remote.Hostname,
			}
		}
		if ch.Kind == KindUDPIn {
			desc.Runtime = &RuntimeSummary{
				HasRaw:         ch.HasRaw,
				HasValue:       ch.HasValue,
				SourceMAC:      firstNonEmpty(ch.ResolvedMAC, ch.Remote.MAC),
				SourceIP:       firstNonEmpty(ch.ResolvedIP, ch.Remote.IP),
				SourceHostname: firstNonEmpty(ch.ResolvedHostname, ch.Remote.Hostname),
			}
			if !ch.LastUpdate.IsZero() {
				desc.Runtime.LastUpdateMS = ch.LastUpdate.UnixMilli()
			}
		}
		out = append(out, desc)
	}
	return out
}

// HardwareDescription enumerates the locally addressable inputs and the
// statically supported output transducer types. Pure metadata except for
// the ADS1115 availability flag.
type HardwareDescription struct {
	LocalInputs  []InputSource      `json:"localInputs"`
	LocalOutputs []OutputTransducer `json:"localOutputs"`
}

// InputSource describes one locally readable converter.
type InputSource struct {
	Type        Kind         `json:"type"`
	Label       string       `json:"label"`
	DefaultID   string       `json:"defaultId"`
	DefaultUnit string       `json:"defaultUnit"`
	Available   bool         `json:"available"`
	Indexes     []IndexLabel `json:"indexes"`
}

// IndexLabel names one sub-channel of a multiplexed converter.
type IndexLabel struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// OutputTransducer describes one supported output type with its
// electrical range, pin options and configuration template.
type OutputTransducer struct {
	Type           string         `json:"type"`
	Label          string         `json:"label"`
	DefaultID      string         `json:"defaultId"`
	DefaultUnit    string         `json:"defaultUnit"`
	Summary        string         `json:"summary"`
	Range          Range          `json:"range"`
	Pins           []PinOption    `json:"pins,omitempty"`
	PWMModes       []PWMMode      `json:"pwmModes,omitempty"`
	Addresses      []string       `json:"addresses,omitempty"`
	ConfigTemplate map[string]any `json:"configTemplate"`
}

// Range is an electrical output range.
type Range struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Unit string  `json:"unit"`
}

// PinOption is one selectable output pin.
type PinOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	GPIO  int    `json:"gpio"`
}

// PWMMode is a named PWM frequency preset.
type PWMMode struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Frequency int    `json:"frequency"`
}

var pwmPins = []PinOption{
	{Value: "D1", Label: "D1 (GPIO5)", GPIO: 5},
	{Value: "D2", Label: "D2 (GPIO4)", GPIO: 4},
	{Value: "D5", Label: "D5 (GPIO14)", GPIO: 14},
	{Value: "D6", Label: "D6 (GPIO12)", GPIO: 12},
	{Value: "D7", Label: "D7 (GPIO13)", GPIO: 13},
	{Value: "D8", Label: "D8 (GPIO15)", GPIO: 15},
}

// DescribeHardware enumerates the local converters and output transducer
// catalogue. The ADS1115 availability flag reflects the lazy
// initialisation outcome (and triggers the attempt if a read never has).
func (r *Registry) DescribeHardware() HardwareDescription {
	adsAvailable := r.ensureADSReady()

	return HardwareDescription{
		LocalInputs: []InputSource{
			{
				Type:        KindLocalADC,
				Label:       "Built-in ADC A0",
				DefaultID:   "A0",
				DefaultUnit: "V",
				Available:   true,
				Indexes:     []IndexLabel{{Value: 0, Label: "A0"}},
			},
			{
				Type:        KindMuxADC,
				Label:       "ADS1115",
				DefaultID:   "ADS",
				DefaultUnit: "V",
				Available:   adsAvailable,
				Indexes: []IndexLabel{
					{Value: 0, Label: "A0"},
					{Value: 1, Label: "A1"},
					{Value: 2, Label: "A2"},
					{Value: 3, Label: "A3"},
				},
			},
		},
		LocalOutputs: []OutputTransducer{
			{
				Type:        "pwm_rc",
				Label:       "RC-filtered PWM",
				DefaultID:   "AO0",
				DefaultUnit: "V",
				Summary:     "1-40 kHz PWM output smoothed by an RC filter (typ. R=10 kΩ, C=10 µF)",
				Range:       Range{Min: 0, Max: 3.3, Unit: "V"},
				Pins:        pwmPins,
				PWMModes: []PWMMode{
					{ID: "balanced", Label: "Balanced (~1 kHz)", Frequency: 1000},
					{ID: "standard", Label: "Standard (~5 kHz)", Frequency: 5000},
					{ID: "fast", Label: "Fast (~20 kHz)", Frequency: 20000},
				},
				ConfigTemplate: map[string]any{
					"pin":       "D2",
					"pwmMode":   "balanced",
					"frequency": 5000,
					"filter":    map[string]any{"r_ohm": 10000, "c_uF": 10},
					"range":     map[string]any{"min": 0.0, "max": 3.3, "unit": "V"},
					"notes":     "Use an RC filter (10 kΩ / 10 µF) to smooth the PWM output.",
				},
			},
			{
				Type:        "mcp4725",
				Label:       "MCP4725 (12-bit DAC)",
				DefaultID:   "DAC0",
				DefaultUnit: "V",
				Summary:     "12-bit I2C DAC, proportional 0-3.3 V output",
				Range:       Range{Min: 0, Max: 3.3, Unit: "V"},
				Addresses:   []string{"0x60", "0x61"},
				ConfigTemplate: map[string]any{
					"address": "0x60",
					"range":   map[string]any{"min": 0.0, "max": 3.3, "unit": "V"},
					"vref":    3.3,
					"notes":   "The MCP4725 uses its supply rail as the voltage reference.",
				},
			},
			{
				Type:        "pwm_0_10v",
				Label:       "PWM to 0-10 V converter",
				DefaultID:   "AO10",
				DefaultUnit: "V",
				Summary:     "12-30 V module converting 0-100% PWM into 0-10 V (±5%)",
				Range:       Range{Min: 0, Max: 10, Unit: "V"},
				Pins:        pwmPins,
				PWMModes: []PWMMode{
					{ID: "standard", Label: "Standard (~2 kHz)", Frequency: 2000},
					{ID: "fast", Label: "Fast (~3 kHz)", Frequency: 3000},
				},
				ConfigTemplate: map[string]any{
					"pin":        "D1",
					"pwmMode":    "standard",
					"frequency":  2000,
					"range":      map[string]any{"min": 0.0, "max": 10.0, "unit": "V"},
					"supply":     map[string]any{"voltage": 24.0, "unit": "V"},
					"inputLevel": map[string]any{"min": 4.5, "max": 24.0, "unit": "V"},
					"jumper":     "5V",
					"notes":      "Power the module from 12-30 V and trim with the on-board potentiometer.",
				},
			},
		},
	}
}
