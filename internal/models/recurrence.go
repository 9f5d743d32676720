package models

// CadenceType is how often a recurring item resets its quota
type CadenceType string

const (
	CadenceDaily   CadenceType = "daily"
	CadenceWeekly  CadenceType = "weekly"
	CadenceMonthly CadenceType = "monthly"
)

// IsValid reports whether c is a known cadence type
func (c CadenceType) IsValid() bool {
	switch c {
	case CadenceDaily, CadenceWeekly, CadenceMonthly:
		return true
	default:
		return false
	}
}

// DefaultPeriod returns the period implied by the cadence type
func (c CadenceType) DefaultPeriod() CadencePeriod {
	switch c {
	case CadenceDaily:
		return PeriodEachDay
	case CadenceWeekly:
		return PeriodEachWeek
	case CadenceMonthly:
		return PeriodEachMonth
	default:
		return ""
	}
}

// CadencePeriod is the window completions are counted in
type CadencePeriod string

const (
	PeriodEachDay   CadencePeriod = "each_day"
	PeriodEachWeek  CadencePeriod = "each_week"
	PeriodEachMonth CadencePeriod = "each_month"
)

// IsValid reports whether p is a known period
func (p CadencePeriod) IsValid() bool {
	switch p {
	case PeriodEachDay, PeriodEachWeek, PeriodEachMonth:
		return true
	default:
		return false
	}
}

// RecurrenceConfig is the cadence policy of a single habit item
type RecurrenceConfig struct {
	Active    bool          `json:"active"`
	Frequency int           `json:"frequency" validate:"min=1,max=31"`
	Type      CadenceType   `json:"type" validate:"required,cadence_type"`
	Period    CadencePeriod `json:"period,omitempty" validate:"omitempty,cadence_period"`
}

// WithDefaults fills an absent period from the cadence type.
func (c RecurrenceConfig) WithDefaults() RecurrenceConfig {
	if c.Period == "" {
		c.Period = c.Type.DefaultPeriod()
	}
	return c
}

// Usable reports whether the config can drive an evaluation at all.
// Unusable configs are treated as inactive.
func (c RecurrenceConfig) Usable() bool {
	return c.Active && c.Frequency >= 1 && c.Type.IsValid()
}

// PeriodConsistent reports whether the (defaulted) period matches the type.
func (c RecurrenceConfig) PeriodConsistent() bool {
	c = c.WithDefaults()
	return c.Period == c.Type.DefaultPeriod()
}
