package payroll

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// taxTableFile is the on-disk layout. Amounts are strings so that they parse exactly.
type taxTableFile struct {
	Brackets []struct {
		UpTo string `yaml:"upTo"`
		Rate string `yaml:"rate"`
	} `yaml:"brackets"`
	PrimaryRebate string `yaml:"primaryRebate"`
	Threshold     string `yaml:"threshold"`
	UIFRate       string `yaml:"uifRate"`
	UIFCeiling    string `yaml:"uifCeiling"`
}

// LoadTaxTable reads a YAML tax table. An empty path yields DefaultTaxTable.
func LoadTaxTable(path string) (TaxTable, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTaxTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return TaxTable{}, fmt.Errorf("read tax table %s: %w", path, err)
	}
	return ParseTaxTable(data)
}

func ParseTaxTable(data []byte) (TaxTable, error) {
	var raw taxTableFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return TaxTable{}, fmt.Errorf("%w: %v", ErrInvalidTaxTable, err)
	}

	var table TaxTable
	for i, b := range raw.Brackets {
		rate, err := parseAmount(b.Rate, fmt.Sprintf("brackets[%d].rate", i), false)
		if err != nil {
			return TaxTable{}, err
		}
		bracket := TaxBracket{Rate: rate}
		if strings.TrimSpace(b.UpTo) != "" {
			upTo, err := parseAmount(b.UpTo, fmt.Sprintf("brackets[%d].upTo", i), false)
			if err != nil {
				return TaxTable{}, err
			}
			bracket.UpTo = decimal.NewNullDecimal(upTo)
		}
		table.Brackets = append(table.Brackets, bracket)
	}

	var err error
	if table.PrimaryRebate, err = parseAmount(raw.PrimaryRebate, "primaryRebate", false); err != nil {
		return TaxTable{}, err
	}
	if table.Threshold, err = parseAmount(raw.Threshold, "threshold", true); err != nil {
		return TaxTable{}, err
	}
	if table.UIFRate, err = parseAmount(raw.UIFRate, "uifRate", false); err != nil {
		return TaxTable{}, err
	}
	if table.UIFCeiling, err = parseAmount(raw.UIFCeiling, "uifCeiling", false); err != nil {
		return TaxTable{}, err
	}
	if err := table.Validate(); err != nil {
		return TaxTable{}, err
	}
	return table, nil
}

func parseAmount(raw, field string, optional bool) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if optional {
			return decimal.Zero, nil
		}
		return decimal.Decimal{}, fmt.Errorf("%w: %s is required", ErrInvalidTaxTable, field)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s: %v", ErrInvalidTaxTable, field, err)
	}
	return d, nil
}
