package domain

import (
	"fmt"
	"strings"
)

type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

type UsageType string

const (
	UsageTypeLicensed UsageType = "licensed"
	UsageTypeMetered  UsageType = "metered"
)

type AggregateUsage string

const (
	AggregateUsageSum              AggregateUsage = "sum"
	AggregateUsageMax              AggregateUsage = "max"
	AggregateUsageLastDuringPeriod AggregateUsage = "last_during_period"
	AggregateUsageLastEver         AggregateUsage = "last_ever"
)

type BillingScheme string

const (
	BillingSchemePerUnit BillingScheme = "per_unit"
	BillingSchemeTiered  BillingScheme = "tiered"
)

type TiersMode string

const (
	TiersModeGraduated TiersMode = "graduated"
	TiersModeVolume    TiersMode = "volume"
)

var (
	intervals       = []Interval{IntervalDay, IntervalWeek, IntervalMonth, IntervalYear}
	usageTypes      = []UsageType{UsageTypeLicensed, UsageTypeMetered}
	aggregateUsages = []AggregateUsage{AggregateUsageSum, AggregateUsageMax, AggregateUsageLastDuringPeriod, AggregateUsageLastEver}
	billingSchemes  = []BillingScheme{BillingSchemePerUnit, BillingSchemeTiered}
	tiersModes      = []TiersMode{TiersModeGraduated, TiersModeVolume}
)

func ParseInterval(raw string) (Interval, error)             { return parseEnum(raw, intervals) }
func ParseUsageType(raw string) (UsageType, error)           { return parseEnum(raw, usageTypes) }
func ParseAggregateUsage(raw string) (AggregateUsage, error) { return parseEnum(raw, aggregateUsages) }
func ParseBillingScheme(raw string) (BillingScheme, error)   { return parseEnum(raw, billingSchemes) }
func ParseTiersMode(raw string) (TiersMode, error)           { return parseEnum(raw, tiersModes) }

// parseEnum matches raw exactly against the closed set; no case folding.
func parseEnum[T ~string](raw string, allowed []T) (T, error) {
	for _, v := range allowed {
		if string(v) == raw {
			return v, nil
		}
	}
	names := make([]string, len(allowed))
	for i, v := range allowed {
		names[i] = string(v)
	}
	var zero T
	return zero, fmt.Errorf("%q is not one of [%s]", raw, strings.Join(names, ", "))
}
