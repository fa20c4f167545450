package measurement

import "math"

// AdcConfig converts raw ADC counts to secondary amperes.
type AdcConfig struct {
	ScaleFactor float64 `yaml:"scale_factor" toml:"scale_factor" json:"scale_factor"` // secondary amperes per count
	Offset      float64 `yaml:"offset" toml:"offset" json:"offset"`                   // zero point in counts
}

// CtConfig describes the current transformer ratio, e.g. 400/1.
type CtConfig struct {
	Primary   float64 `yaml:"primary" toml:"primary" json:"primary"`       // primary rating in amperes
	Secondary float64 `yaml:"secondary" toml:"secondary" json:"secondary"` // secondary rating in amperes, must be non-zero
}

// Returns the default ADC scaling of 1 mA per count and no offset.
func DefaultAdcConfig() AdcConfig {
	return AdcConfig{ScaleFactor: 0.001, Offset: 0.0}
}

// Returns the default 400/1 CT.
func DefaultCtConfig() CtConfig {
	return CtConfig{Primary: 400.0, Secondary: 1.0}
}

// Returns the CT ratio primary/secondary. Secondary must be non-zero; this is
// checked when configuration is loaded, not here.
func (c CtConfig) Ratio() float64 {
	return c.Primary / c.Secondary
}

// Returns the secondary current for a raw ADC value: (raw - offset) * scale.
func AdcToSecondary(raw int32, adc AdcConfig) float64 {
	return (float64(raw) - adc.Offset) * adc.ScaleFactor
}

// Returns the primary current for a secondary current using the CT ratio.
func SecondaryToPrimary(secondary float64, ct CtConfig) float64 {
	return secondary * ct.Ratio()
}

// Returns the primary current for a raw ADC value.
func AdcToPrimary(raw int32, adc AdcConfig, ct CtConfig) float64 {
	return SecondaryToPrimary(AdcToSecondary(raw, adc), ct)
}

// Returns the secondary currents for raw, preserving order and length.
func AdcSamplesToSecondary(raw []int32, adc AdcConfig) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = AdcToSecondary(v, adc)
	}
	return out
}

// Returns the primary currents for raw, preserving order and length.
func AdcSamplesToPrimary(raw []int32, adc AdcConfig, ct CtConfig) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = AdcToPrimary(v, adc, ct)
	}
	return out
}

// CurrentScaler holds the configuration for the complete ADC to primary chain.
type CurrentScaler struct {
	adc AdcConfig
	ct  CtConfig
}

// Returns a scaler for the given ADC and CT configuration.
func NewCurrentScaler(adc AdcConfig, ct CtConfig) CurrentScaler {
	return CurrentScaler{adc: adc, ct: ct}
}

// Returns the primary current for a raw ADC value.
func (s CurrentScaler) ScaleToPrimary(raw int32) float64 {
	return AdcToPrimary(raw, s.adc, s.ct)
}

// Returns the primary currents for raw ADC values.
func (s CurrentScaler) ScaleSamplesToPrimary(raw []int32) []float64 {
	return AdcSamplesToPrimary(raw, s.adc, s.ct)
}

// ScaleSamplesToPrimaryInto writes the primary currents for raw into dst,
// growing it if needed, and returns the filled slice.
func (s CurrentScaler) ScaleSamplesToPrimaryInto(dst []float64, raw []int32) []float64 {
	if cap(dst) < len(raw) {
		dst = make([]float64, len(raw))
	}
	dst = dst[:len(raw)]
	for i, v := range raw {
		dst[i] = AdcToPrimary(v, s.adc, s.ct)
	}
	return dst
}

// Returns the inverse of ScaleToPrimary rounded to the nearest count. Used to
// synthesise raw samples from a primary-side waveform.
func (s CurrentScaler) PrimaryToAdc(primary float64) int32 {
	counts := math.Round(primary/s.ct.Ratio()/s.adc.ScaleFactor + s.adc.Offset)
	// saturate like a real converter at full scale
	switch {
	case counts > math.MaxInt32:
		return math.MaxInt32
	case counts < math.MinInt32:
		return math.MinInt32
	}
	return int32(counts)
}

// Returns the ADC configuration.
func (s CurrentScaler) AdcConfig() AdcConfig {
	return s.adc
}

// Returns the CT configuration.
func (s CurrentScaler) CtConfig() CtConfig {
	return s.ct
}
