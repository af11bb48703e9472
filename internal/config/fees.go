package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultRegistrationFee applies when no fee schedule file is configured.
var DefaultRegistrationFee = decimal.RequireFromString("250.00")

// FeeSchedule holds registration fees per season and division.
//
//	default: "250.00"
//	seasons:
//	  "2025":
//	    default: "275.00"
//	    divisions:
//	      U10: "200.00"
type FeeSchedule struct {
	Default decimal.Decimal       `yaml:"default"`
	Seasons map[string]SeasonFees `yaml:"seasons"`
}

// SeasonFees is the per-season section of a FeeSchedule.
type SeasonFees struct {
	Default   decimal.Decimal            `yaml:"default"`
	Divisions map[string]decimal.Decimal `yaml:"divisions"`
}

// LoadFeeSchedule reads a YAML fee schedule. An empty path yields a schedule
// that charges DefaultRegistrationFee for everything.
func LoadFeeSchedule(path string) (*FeeSchedule, error) {
	if path == "" {
		return &FeeSchedule{Default: DefaultRegistrationFee}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fee schedule: %w", err)
	}
	return ParseFeeSchedule(data)
}

// ParseFeeSchedule decodes a YAML fee schedule document.
func ParseFeeSchedule(data []byte) (*FeeSchedule, error) {
	var fs FeeSchedule
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("decode fee schedule: %w", err)
	}
	if fs.Default.IsZero() {
		fs.Default = DefaultRegistrationFee
	}
	if fs.Default.IsNegative() {
		return nil, fmt.Errorf("fee schedule default must not be negative")
	}
	return &fs, nil
}

// Fee returns the registration fee for a season and division. Division
// matching is case-insensitive; season and division fall back to their
// defaults.
func (fs *FeeSchedule) Fee(season, division string) decimal.Decimal {
	sf, ok := fs.Seasons[strings.TrimSpace(season)]
	if !ok {
		return fs.Default
	}
	division = strings.TrimSpace(division)
	for name, fee := range sf.Divisions {
		if strings.EqualFold(name, division) {
			return fee
		}
	}
	if !sf.Default.IsZero() {
		return sf.Default
	}
	return fs.Default
}
